// Package report selects, scales and renders per-user usage rows.
package report

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"
)

// DefaultWidth is the minimum width of the user and size columns.
const DefaultWidth = 16

// Section names, printed as headers in verbose mode.
const (
	SectionTotals     = "TOTALS"
	SectionSubfolders = "SUBFOLDERS"
)

// rowTemplate renders a single report line.
//
//go:embed templates/row.tmpl
var rowTemplate string

// Source is a finished usage table.
type Source interface {
	Base() string
	Users() []string
	Paths(user string) []string
	Total(user, path string) int64
}

// Options configures row selection and rendering.
type Options struct {
	// Unit divides byte totals before display and threshold comparison.
	Unit float64
	// MinPrint is the minimum scaled size for a row to be kept.
	MinPrint float64
	// Totals selects the per-user totals of the base path.
	Totals bool
	// Recursive selects the per-user totals of every directory.
	Recursive bool
	// Depth limits recursive rows to this many levels below the base (0=unlimited).
	Depth int
	// Width is the minimum width of the user and size columns.
	Width int
	// Verbose prints section headers.
	Verbose bool
}

// Row is one (user, path) total.
type Row struct {
	User   string `json:"user"   yaml:"user"`
	Path   string `json:"path"   yaml:"path"`
	Bytes  int64  `json:"bytes"  yaml:"bytes"`
	Scaled int64  `json:"scaled" yaml:"scaled"`
}

// Section is a titled list of rows.
type Section struct {
	Name string `json:"name" yaml:"name"`
	Rows []Row  `json:"rows" yaml:"rows"`
}

// Report is the selected output of one run.
type Report struct {
	Base     string    `json:"base"      yaml:"base"`
	Unit     float64   `json:"unit"      yaml:"unit"`
	MinPrint float64   `json:"min_print" yaml:"min_print"`
	Sections []Section `json:"sections"  yaml:"sections"`
}

var errInvalidUnit = errors.New("unit must be positive")

// Scale divides bytes by unit, truncating toward zero.
func Scale(bytes int64, unit float64) int64 {
	return int64(float64(bytes) / unit)
}

// depth returns the number of levels path lies below base.
func depth(path, base string) int {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return 0
	}

	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Build selects the rows of src requested by opt.
//
// Without Totals or Recursive the report is recursive. With both, the totals
// section comes first. Rows whose scaled size is below MinPrint are dropped.
func Build(src Source, opt Options) (Report, error) {
	if opt.Unit <= 0 {
		return Report{}, fmt.Errorf("%w: %v", errInvalidUnit, opt.Unit)
	}

	rep := Report{
		Base:     src.Base(),
		Unit:     opt.Unit,
		MinPrint: opt.MinPrint,
	}

	keep := func(rows []Row, user, path string) []Row {
		bytes := src.Total(user, path)
		scaled := Scale(bytes, opt.Unit)

		if float64(scaled) < opt.MinPrint {
			return rows
		}

		return append(rows, Row{User: user, Path: path, Bytes: bytes, Scaled: scaled})
	}

	users := src.Users()

	if opt.Totals {
		section := Section{Name: SectionTotals, Rows: []Row{}}
		for _, user := range users {
			section.Rows = keep(section.Rows, user, src.Base())
		}

		rep.Sections = append(rep.Sections, section)
	}

	if opt.Recursive || !opt.Totals {
		section := Section{Name: SectionSubfolders, Rows: []Row{}}

		for _, user := range users {
			for _, path := range src.Paths(user) {
				if opt.Depth > 0 && depth(path, src.Base()) > opt.Depth {
					continue
				}

				section.Rows = keep(section.Rows, user, path)
			}
		}

		rep.Sections = append(rep.Sections, section)
	}

	return rep, nil
}

// Write renders the report as fixed-width text lines.
func Write(w io.Writer, rep Report, opt Options) error {
	width := opt.Width
	if width <= 0 {
		width = DefaultWidth
	}

	tmpl, err := template.New("row").Funcs(template.FuncMap{
		"pad": func(v any) string {
			return fmt.Sprintf("%-*v", width, v)
		},
	}).Parse(rowTemplate)
	if err != nil {
		return fmt.Errorf("parsing row template: %w", err)
	}

	for _, section := range rep.Sections {
		if opt.Verbose {
			if _, err := fmt.Fprintf(w, "\n%s\n", section.Name); err != nil {
				return err
			}
		}

		for _, row := range section.Rows {
			if err := tmpl.Execute(w, row); err != nil {
				return fmt.Errorf("rendering row for %s in %s: %w", row.User, row.Path, err)
			}
		}
	}

	return nil
}
