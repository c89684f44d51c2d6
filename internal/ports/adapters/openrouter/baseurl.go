package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = []string{"openrouter.ai", "api.openrouter.ai"}

// BaseURLError explains why a configured base URL was refused.
type BaseURLError struct {
	URL    string
	Reason string
	Err    error
}

func (e *BaseURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid OPENROUTER_BASE_URL %q: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid OPENROUTER_BASE_URL %q: %s", e.URL, e.Reason)
}

func (e *BaseURLError) Unwrap() error { return e.Err }

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only absolute https URLs without credentials,
// query or fragment whose host is in allowedHosts (or the OpenRouter hosts
// when allowedHosts is empty).
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	refuse := func(reason string) error { return &BaseURLError{URL: baseURL, Reason: reason} }

	u, err := url.Parse(baseURL)
	if err != nil {
		return &BaseURLError{URL: baseURL, Reason: "parse", Err: err}
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case !u.IsAbs() || host == "":
		return refuse("absolute URL with host is required")
	case u.User != nil:
		return refuse("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return refuse("query and fragment are not allowed")
	case !strings.EqualFold(u.Scheme, "https"):
		return refuse("https is required")
	}

	if _, ok := hostSet(allowedHosts)[host]; !ok {
		return refuse(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

// hostSet normalizes configured hosts: scheme, path and port are dropped.
func hostSet(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		if i := strings.Index(v, "://"); i >= 0 {
			v = v[i+3:]
		}
		if i := strings.IndexAny(v, "/:"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		for _, h := range defaultAllowedHosts {
			out[h] = struct{}{}
		}
	}
	return out
}
