package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipmark/internal/httpapi"
	"github.com/forPelevin/clipmark/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSegmenter(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	seg := pipeline.NewSegmenter(pipeline.Config{
		SegmenterURL:      cfg.SegmenterURL,
		OpenRouterAPIKey:  cfg.OpenRouter.APIKey,
		OpenRouterModel:   cfg.OpenRouter.Model,
		OpenRouterBaseURL: cfg.OpenRouter.BaseURL,
	})
	srv := httpapi.New(httpapi.Deps{Log: log, Segmenter: seg})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
