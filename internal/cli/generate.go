package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/clipmark/internal/logging"
	"github.com/forPelevin/clipmark/internal/pipeline"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [transcript-file|-]",
		Short: "Generate segments for a transcript and write manifest.json",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().Float64("duration", 0, "Media duration in seconds")
	cmd.Flags().String("media", "", "Media file to probe for the duration (needs ffprobe)")
	cmd.Flags().String("out", "", "Output directory (default from config)")
	cmd.Flags().Bool("clipboard", false, "Read the transcript from the clipboard")

	// Hidden tuning flag (internal)
	cmd.Flags().Duration("timeout", 10*time.Minute, "Overall timeout")
	_ = cmd.Flags().MarkHidden("timeout")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	duration, _ := cmd.Flags().GetFloat64("duration")
	media, _ := cmd.Flags().GetString("media")
	outDir, _ := cmd.Flags().GetString("out")
	fromClipboard, _ := cmd.Flags().GetBool("clipboard")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if outDir == "" {
		outDir = cfg.OutDir
	}

	pc := pipeline.Config{
		FromClipboard: fromClipboard,
		Duration:      duration,
		MediaPath:     media,
		OutDir:        outDir,
		Logf:          logging.Logf(log),
		Stdin:         cmd.InOrStdin(),

		FFprobePath: cfg.FFprobePath,

		SegmenterURL:           cfg.SegmenterURL,
		OpenRouterAPIKey:       cfg.OpenRouter.APIKey,
		OpenRouterModel:        cfg.OpenRouter.Model,
		OpenRouterBaseURL:      cfg.OpenRouter.BaseURL,
		OpenRouterAllowedHosts: cfg.OpenRouter.AllowedHosts,
	}
	if len(args) == 1 {
		pc.TranscriptPath = args[0]
	}
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path, err := pipeline.Run(ctx, pc)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
