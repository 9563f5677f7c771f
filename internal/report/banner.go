package report

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
)

// bannerTemplate renders the verbose header.
//
//go:embed templates/banner.tmpl
var bannerTemplate string

// Banner describes the run printed before verbose results.
type Banner struct {
	Time       time.Time
	Base       string
	Unit       float64
	MinPrint   float64
	Command    string
	Filesystem *disk.UsageStat
}

// NewBanner describes a run over base invoked with args.
// Filesystem capacity is omitted when it cannot be read.
func NewBanner(base string, opt Options, args []string) Banner {
	banner := Banner{
		Time:     time.Now(),
		Base:     base,
		Unit:     opt.Unit,
		MinPrint: opt.MinPrint,
		Command:  strings.Join(args, " "),
	}

	if usage, err := disk.Usage(base); err == nil {
		banner.Filesystem = usage
	}

	return banner
}

// humanBytes formats a byte count of any numeric type.
func humanBytes(v any) string {
	switch n := v.(type) {
	case uint64:
		return humanize.Bytes(n)
	case int64:
		return humanize.Bytes(uint64(max(n, 0)))
	case float64:
		return humanize.Bytes(uint64(max(n, 0)))
	default:
		return fmt.Sprint(v)
	}
}

// WriteBanner renders the banner.
func WriteBanner(w io.Writer, banner Banner) error {
	tmpl, err := template.New("banner").Funcs(template.FuncMap{
		"bytes": humanBytes,
		"num": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
	}).Parse(bannerTemplate)
	if err != nil {
		return fmt.Errorf("parsing banner template: %w", err)
	}

	if err := tmpl.Execute(w, banner); err != nil {
		return fmt.Errorf("rendering banner: %w", err)
	}

	return nil
}
