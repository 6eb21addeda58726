package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/LLIu33/swot/internal/config"
	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
	apiURL     string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "swot",
		Short:         "Topic and quiz authoring service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&apiURL, "api", "", "topic API base URL (overrides config)")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewTopicsCmd(&configPath, &apiURL))
	return cmd
}

// loadConfig reads .env, then the YAML file. A missing default file is tolerated so the
// CLI works from environment variables alone.
func loadConfig(path string) (config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return config.Config{}, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = ""
	}
	return config.Load(path)
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
