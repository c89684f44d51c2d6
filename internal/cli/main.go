package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forPelevin/clipmark/internal/config"
	"github.com/forPelevin/clipmark/internal/logging"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRoot()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "clipmark",
		Short:         "Find shareable segments in a transcript and map them onto the media timeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Config file (default clipmark.yaml if present)")

	root.AddCommand(newGenerateCmd(), newRemapCmd(), newServeCmd())
	return root
}

// loadEnv resolves config and logger for a command.
func loadEnv(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, log, nil
}
