package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/fang"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/userstat/internal/report"
	"github.com/idelchi/userstat/internal/userstat"
)

// EnvPrefix prefixes the environment variables overriding flags.
const EnvPrefix = "USERSTAT"

// CLI represents the command-line interface.
type CLI struct {
	version string
	// owner overrides owner resolution; nil uses the system user database.
	owner userstat.OwnerFunc
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// options holds the resolved settings of one invocation.
type options struct {
	walk    userstat.Options
	report  report.Options
	output  string
	debug   bool
	command []string
}

var allowedOutputs = []string{"table", "json", "yaml"}

// parseUnit accepts a plain number of bytes or a humanized size such as 1MB or 1KiB.
func parseUnit(s string) (float64, error) {
	s = strings.TrimSpace(s)

	unit, err := strconv.ParseFloat(s, 64)
	if err != nil {
		size, herr := humanize.ParseBytes(s)
		if herr != nil {
			return 0, fmt.Errorf("invalid unit %q: %w", s, herr)
		}

		unit = float64(size)
	}

	if math.IsNaN(unit) || math.IsInf(unit, 0) || unit <= 0 {
		return 0, fmt.Errorf("invalid unit %q: must be positive and finite", s)
	}

	return unit, nil
}

// Command builds the root command.
//
//nolint:funlen // Flag definitions.
func (c CLI) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userstat [flags] basepath",
		Short: "Report disk usage per owning user, aggregated per directory",
		Long: heredoc.Doc(`
			userstat attributes the size of every file below basepath to the user
			owning it and sums the totals per directory, so each directory reports
			how much every user stores anywhere beneath it.

			Sizes are divided by --unit (truncating) before display and before the
			--min_print threshold is applied. Symlinked files are not counted;
			symlinked directories are traversed, except links resolving to an
			ancestor directory or to basepath, which are not followed.

			Modes:
			  --totals     one row per user for basepath itself
			  --recursive  one row per user and directory (default)

			Every flag may also be set in a config file (--config) or through an
			environment variable such as USERSTAT_UNIT or USERSTAT_MIN_PRINT.
			Unreadable entries are reported on stderr and do not fail the run.
		`),
		Example: heredoc.Doc(`
			userstat --totals /home
			userstat -u 1GB -m 10 -r /data
			userstat -v -o json /srv
		`),
		Version:       c.version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.resolve(cmd, args[0])
			if err != nil {
				return err
			}

			return logic(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false

	flags.StringP("unit", "u", "1e6", "Unit to print in, e.g. 1000 or 1KB for KB, 1e9 or 1GB for GB")
	flags.Float64P("min_print", "m", 1, "Minimum total size (in units) for a row to be printed")
	flags.BoolP("totals", "t", false, "Print only totals per user for basepath")
	flags.BoolP("recursive", "r", false, "Print totals per user for every directory")
	flags.BoolP("verbose", "v", false, "Print a banner and section headers")
	flags.StringP("output", "o", "table", "Output format: table, json or yaml")
	flags.StringSliceP("exclude", "e", []string{}, "Regex patterns of paths to exclude")
	flags.IntP("depth", "d", 0, "Maximum depth of directory rows below basepath (0=unlimited)")
	flags.IntP("width", "w", report.DefaultWidth, "Minimum width of the user and size columns")
	flags.String("config", "", "Config file (yaml, json or toml)")
	flags.Bool("debug", false, "Enable debug output")

	return cmd
}

// resolve merges flags, environment and config file into options.
func (c CLI) resolve(cmd *cobra.Command, path string) (options, error) {
	cfg := viper.New()
	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return options{}, fmt.Errorf("binding flags: %w", err)
	}

	if file := cfg.GetString("config"); file != "" {
		cfg.SetConfigFile(file)

		if err := cfg.ReadInConfig(); err != nil {
			return options{}, fmt.Errorf("reading config %q: %w", file, err)
		}
	}

	unit, err := parseUnit(cfg.GetString("unit"))
	if err != nil {
		return options{}, err
	}

	opts := options{
		walk: userstat.Options{
			Path:     path,
			Excludes: cfg.GetStringSlice("exclude"),
			Owner:    c.owner,
		},
		report: report.Options{
			Unit:      unit,
			MinPrint:  cfg.GetFloat64("min_print"),
			Totals:    cfg.GetBool("totals"),
			Recursive: cfg.GetBool("recursive"),
			Depth:     cfg.GetInt("depth"),
			Width:     cfg.GetInt("width"),
			Verbose:   cfg.GetBool("verbose"),
		},
		output:  strings.ToLower(cfg.GetString("output")),
		debug:   cfg.GetBool("debug"),
		command: os.Args,
	}

	if !slices.Contains(allowedOutputs, opts.output) {
		return options{}, fmt.Errorf("invalid output format %q: must be one of %v", opts.output, allowedOutputs)
	}

	if opts.report.Depth < 0 {
		return options{}, errors.New("depth cannot be negative")
	}

	if opts.report.Width < 0 {
		return options{}, errors.New("width cannot be negative")
	}

	return opts, nil
}

// Execute runs the CLI with the process arguments.
// An interrupt cancels the walk.
func (c CLI) Execute(ctx context.Context) error {
	return fang.Execute(ctx, c.Command(),
		fang.WithVersion(c.version),
		fang.WithNotifySignal(os.Interrupt),
	)
}
