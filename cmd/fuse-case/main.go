// Command fuse-case processes case files offline and prints their reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-expediente-fusion/internal/app"
	"github.com/a3tai/mcp-expediente-fusion/internal/config"
	"github.com/a3tai/mcp-expediente-fusion/internal/pipeline"
	"github.com/a3tai/mcp-expediente-fusion/internal/report"
)

const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitReview = 3
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	format       string
	failOnReview bool
	cfg          *config.Config
}

func parseArgs(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{cfg: config.DefaultConfig()}
	cfg := opts.cfg

	fs := pflag.NewFlagSet("fuse-case", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.format, "format", string(report.FormatText), "Output format: text, json")
	fs.BoolVar(&opts.failOnReview, "fail-on-review", false, "Exit with status 3 when any case needs manual review")
	fs.StringVar(&cfg.CoefficientsPath, "coefficients", "", "YAML or JSON file overriding the fusion coefficients")
	fs.StringVar(&cfg.RulesPath, "rules", "", "YAML file with extra or replacement classification rules")
	fs.StringVar(&cfg.CatalogDB, "catalog-db", "", "SQLite file of runtime requirement types")
	fs.StringVar(&cfg.LogLevel, "loglevel", "warn", "Log level (debug, info, warn, error)")
	fs.Int64Var(&cfg.MaxFileSize, "maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: fuse-case [OPTIONS] <case.json>... (use - for stdin)\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, nil, errors.New("at least one case file is required")
	}
	if _, err := report.ParseFormat(opts.format); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return opts, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, files, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	format, _ := report.ParseFormat(opts.format)

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: opts.cfg.SlogLevel()}))
	services, err := app.New(opts.cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer services.Close()

	status := exitOK
	for i, file := range files {
		c, err := readCase(file, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			status = exitError
			continue
		}

		r, err := services.Processor.Process(ctx, c)
		if err != nil {
			fmt.Fprintf(stderr, "Error: case %s: %v\n", c.ID, err)
			status = exitError
			continue
		}

		if i > 0 && format == report.FormatText {
			fmt.Fprintln(stdout)
		}
		if err := report.Write(stdout, r, format); err != nil {
			fmt.Fprintf(stderr, "Error writing report: %v\n", err)
			return exitError
		}
		if opts.failOnReview && r.RequiresManualReview && status == exitOK {
			status = exitReview
		}
	}
	return status
}

// readCase decodes one case file. Relative document paths are taken
// relative to the case file, and the file name stands in for a missing ID.
func readCase(file string, stdin io.Reader) (pipeline.Case, error) {
	var (
		c    pipeline.Case
		data []byte
		err  error
		dir  = "."
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
		dir = filepath.Dir(file)
	}
	if err != nil {
		return c, fmt.Errorf("read case %s: %w", file, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode case %s: %w", file, err)
	}

	if c.ID == "" && file != "-" {
		base := filepath.Base(file)
		c.ID = base[:len(base)-len(filepath.Ext(base))]
	}
	for src, path := range c.Documents {
		if path != "" && !filepath.IsAbs(path) {
			c.Documents[src] = filepath.Join(dir, path)
		}
	}
	return c, nil
}
