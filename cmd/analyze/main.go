// Command analyze runs the groundwater analysis on a CSV file from the command
// line and prints the per-sample indices and the batch summary.
//
//	analyze -in samples.csv
//	analyze -config config.yaml -in samples.csv -format json -metal Lead
//	analyze -in samples.csv -watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aqualyx/geoanalyze/internal/compute"
	"github.com/aqualyx/geoanalyze/internal/config"
	"github.com/aqualyx/geoanalyze/internal/ingest"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

const (
	exitOK      = 0
	exitNoData  = 1
	exitUsage   = 2
	stdinMarker = "-"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type options struct {
	configPath string
	in         string
	format     string
	metal      types.Metal
	watch      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		o     options
		metal string
	)
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to config file (built-in defaults when empty)")
	fs.StringVar(&o.in, "in", "", `CSV file to analyse, or "-" for stdin`)
	fs.StringVar(&o.format, "format", "table", "output format: table | csv | json")
	fs.StringVar(&metal, "metal", "", "also report the highest and lowest reading of this metal (name or symbol)")
	fs.BoolVar(&o.watch, "watch", false, "re-run whenever the input or config file changes")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.in == "" {
		return o, errors.New("-in is required")
	}
	switch o.format {
	case "table", "csv", "json":
	default:
		return o, fmt.Errorf("unknown -format %q", o.format)
	}
	if metal != "" {
		m, ok := lookupMetal(metal)
		if !ok {
			return o, fmt.Errorf("unknown -metal %q", metal)
		}
		if o.format == "csv" {
			return o, errors.New("-metal cannot be combined with -format csv")
		}
		o.metal = m
	}
	if o.watch && o.in == stdinMarker {
		return o, errors.New("-watch needs a file for -in")
	}
	return o, nil
}

// lookupMetal accepts a metal name or its chemical symbol, case-insensitively.
func lookupMetal(s string) (types.Metal, bool) {
	for _, m := range types.AllMetals {
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, m.Symbol()) {
			return m, true
		}
	}
	return "", false
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "analyze:", err)
		}
		return exitUsage
	}

	if !opts.watch {
		return analyzeOnce(opts, stdin, stdout, stderr)
	}

	analyzeOnce(opts, stdin, stdout, stderr)
	paths := []string{opts.in}
	if opts.configPath != "" {
		paths = append(paths, opts.configPath)
	}
	err = config.WatchFiles(ctx, paths, func(path string) {
		slog.Info("analyze: change detected", "path", path)
		fmt.Fprintf(stdout, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
		analyzeOnce(opts, stdin, stdout, stderr)
	})
	if err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitUsage
	}
	return exitOK
}

// analyzeOnce loads config and input, analyses the input and renders it.
// Validation errors go to stderr; it reports exitNoData when no row survived.
func analyzeOnce(opts options, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintln(stderr, "analyze:", err)
			return exitUsage
		}
		cfg = loaded
	}

	text, name, err := readInput(opts.in, stdin)
	if err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitUsage
	}

	vr := ingest.Parse(text, cfg.Analysis.Schema())
	for _, e := range vr.Errors {
		fmt.Fprintln(stderr, e)
	}
	if len(vr.Records) == 0 {
		fmt.Fprintln(stderr, "analyze: no valid records")
		return exitNoData
	}

	b := compute.NewEngine(cfg.Analysis.Params()).Process(name, vr, time.Now())

	var ext *types.MetalExtreme
	if opts.metal != "" {
		if e, ok := compute.Extreme(b.Results, opts.metal); ok {
			ext = &e
		} else {
			fmt.Fprintf(stderr, "analyze: no sample measured %s\n", opts.metal)
		}
	}

	switch opts.format {
	case "csv":
		err = ingest.WriteReport(stdout, b.Results)
	case "json":
		err = writeJSON(stdout, b, ext)
	default:
		err = writeTable(stdout, b, ext)
	}
	if err != nil {
		fmt.Fprintln(stderr, "analyze:", err)
		return exitUsage
	}
	return exitOK
}

func readInput(in string, stdin io.Reader) (text, name string, err error) {
	if in == stdinMarker {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", in, err)
	}
	return string(data), filepath.Base(in), nil
}
