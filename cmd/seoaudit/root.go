package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/rmn-raj/seo-tool/config"
	"github.com/spf13/cobra"
)

const appName = "seoaudit"

// app carries state shared by every subcommand. cfg is populated by the
// root command's PersistentPreRunE before any subcommand runs.
type app struct {
	cfg *config.Config

	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Audit web pages for on-page SEO signals",
		Long: `seoaudit checks the title, meta description, H1 headings and image alt
text of a web page and scores the result out of 100.

Run "seoaudit serve" for the HTTP API or "seoaudit analyze URL" for a
one-off report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvPrefix+"CONFIG)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: json or text")

	root.AddCommand(newServeCmd(a), newAnalyzeCmd(a))
	return root
}

func (a *app) init(logOut io.Writer) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg

	initLogger(cfg.Log, logOut)
	return nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
