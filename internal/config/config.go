package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/forPelevin/clipmark/internal/ports/adapters/openrouter"
)

const DefaultFile = "clipmark.yaml"

type Config struct {
	OpenRouter struct {
		APIKey       string   `yaml:"api_key"`
		Model        string   `yaml:"model"`
		BaseURL      string   `yaml:"base_url"`
		AllowedHosts []string `yaml:"allowed_hosts"`
	} `yaml:"openrouter"`

	// SegmenterURL points at a remote /api/generate-clips service. When set
	// it replaces the OpenRouter client.
	SegmenterURL string `yaml:"segmenter_url" validate:"omitempty,url"`

	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
		Format string `yaml:"format" validate:"oneof=text json"`
	} `yaml:"log"`

	FFprobePath string `yaml:"ffprobe_path"`
	OutDir      string `yaml:"out_dir" validate:"required"`
}

func Default() *Config {
	c := &Config{}
	c.OpenRouter.Model = "google/gemini-2.5-flash"
	c.OpenRouter.BaseURL = "https://openrouter.ai"
	c.Server.Addr = ":8080"
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.FFprobePath = "ffprobe"
	c.OutDir = "out"
	return c
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. A missing default file is not an error; a missing explicit
// path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("OPENROUTER_API_KEY", &c.OpenRouter.APIKey)
	set("OPENROUTER_MODEL", &c.OpenRouter.Model)
	set("OPENROUTER_BASE_URL", &c.OpenRouter.BaseURL)
	set("CLIPMARK_SEGMENTER_URL", &c.SegmenterURL)
	set("CLIPMARK_ADDR", &c.Server.Addr)
	set("CLIPMARK_LOG_LEVEL", &c.Log.Level)
	set("CLIPMARK_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("OPENROUTER_ALLOWED_HOSTS"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.AllowedHosts = splitList(v)
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server addr %q: %w", c.Server.Addr, err)
	}
	return nil
}

// ValidateSegmenter checks what the generate paths need on top of Validate.
func (c *Config) ValidateSegmenter() error {
	if c.SegmenterURL != "" {
		return nil
	}
	if c.OpenRouter.APIKey == "" {
		return errors.New("OPENROUTER_API_KEY is required (set it in .env) unless CLIPMARK_SEGMENTER_URL is set")
	}
	return openrouter.ValidateBaseURL(c.OpenRouter.BaseURL, c.OpenRouter.AllowedHosts)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
