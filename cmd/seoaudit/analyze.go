package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rmn-raj/seo-tool/analyzer"
	"github.com/rmn-raj/seo-tool/config"
	"github.com/rmn-raj/seo-tool/models"
	"github.com/rmn-raj/seo-tool/report"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	format  string
	timeout int
	mode    string
	stealth bool
	file    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [URL]",
		Short: "Audit one page and print the report",
		Long: `Audit one page and print the report.

The page is retrieved the same way the API does it. With --file the markup
is read from disk and nothing is fetched. A URL without a scheme is
treated as https.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = args[0]
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), a.cfg, target, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", report.FormatText, "output format: text, markdown, html or json")
	f.IntVarP(&opts.timeout, "timeout", "t", 0, "retrieval timeout in seconds (default from config)")
	f.StringVar(&opts.mode, "mode", "auto", "fetch mode: auto, http or browser")
	f.BoolVar(&opts.stealth, "stealth", false, "enable browser anti-detection evasions")
	f.StringVar(&opts.file, "file", "", "audit a local HTML file instead of fetching a URL")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, cfg *config.Config, target string, opts analyzeOptions) error {
	switch opts.format {
	case report.FormatText, report.FormatMarkdown, report.FormatHTML, report.FormatJSON:
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	if opts.file != "" {
		return analyzeFile(out, target, opts)
	}
	if target == "" {
		return errors.New("a URL or --file is required")
	}

	pageURL, err := ensureScheme(target)
	if err != nil {
		return err
	}

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = int(cfg.Fetch.DefaultTimeout.Seconds())
	}

	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	az := analyzer.New(svc.dispatcher,
		analyzer.WithTimeouts(cfg.Fetch.DefaultTimeout, cfg.Fetch.MaxTimeout),
	)
	resp, err := az.Analyze(ctx, &models.AnalyzeRequest{
		URL:       pageURL,
		Timeout:   timeout,
		FetchMode: opts.mode,
		Stealth:   opts.stealth,
		Format:    opts.format,
	})
	if err != nil {
		return err
	}

	if opts.format == report.FormatJSON {
		return writeJSON(out, resp)
	}
	_, err = fmt.Fprintln(out, resp.Rendered)
	return err
}

func analyzeFile(out io.Writer, label string, opts analyzeOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.file, err)
	}
	if label == "" {
		label = opts.file
	}

	az := analyzer.New(nil)
	rep, err := az.AnalyzeMarkup(string(data))
	if err != nil {
		return err
	}

	if opts.format == report.FormatJSON {
		return writeJSON(out, rep)
	}
	rendered, err := az.Render(opts.format, label, rep)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, rendered)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
