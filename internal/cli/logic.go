package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/userstat/internal/report"
	"github.com/idelchi/userstat/internal/userstat"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(ctx context.Context, stdout, stderr io.Writer, opts options) error {
	level := slog.LevelWarn
	if opts.debug {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	opts.walk.Logger = log

	enableProgress := opts.output == "table" &&
		!opts.debug &&
		isTerminal(stderr)

	// Simple progress callback that prints directly to stderr
	var progressHook func(files, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		progressHook = func(files, bytes int64) {
			msg := fmt.Sprintf("Scanning… %d files, %s",
				files, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}
	}

	agg, err := userstat.Run(ctx, opts.walk, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	if stats := agg.Stats(); stats.Errors > 0 {
		log.Warn("some entries could not be read and were skipped", "count", stats.Errors)
	}

	rep, err := report.Build(agg, opts.report)
	if err != nil {
		return err
	}

	switch opts.output {
	case "json":
		return PrintJSON(rep, stdout)
	case "yaml":
		return PrintYAML(rep, stdout)
	case "table":
		if opts.report.Verbose {
			if err := report.WriteBanner(stdout, report.NewBanner(agg.Base(), opts.report, opts.command)); err != nil {
				return err
			}
		}

		return PrintTable(rep, opts.report, stdout)
	default:
		return fmt.Errorf("unknown output format: %s", opts.output)
	}
}
