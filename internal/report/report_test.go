package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/userstat/internal/userstat"
)

type fakeSource struct {
	userstat.Table
	base string
}

func (f fakeSource) Base() string { return f.base }

func source() fakeSource {
	base := filepath.FromSlash("/data")
	sub := filepath.Join(base, "sub")
	deep := filepath.Join(sub, "deep")

	table := make(userstat.Table)
	table.Add("x", base, 1500)
	table.Add("x", sub, 500)
	table.Add("y", base, 30_000)
	table.Add("y", sub, 30_000)
	table.Add("y", deep, 2_000)

	return fakeSource{Table: table, base: base}
}

func paths(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.User+" "+filepath.ToSlash(row.Path))
	}

	return out
}

func TestBuildThresholdUsesScaledSize(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1000, MinPrint: 1, Recursive: true})
	require.NoError(t, err)
	require.Len(t, rep.Sections, 1)

	rows := rep.Sections[0].Rows
	assert.Equal(t, []string{"x /data", "y /data", "y /data/sub", "y /data/sub/deep"}, paths(rows))
	assert.Equal(t, Row{User: "x", Path: filepath.FromSlash("/data"), Bytes: 1500, Scaled: 1}, rows[0])
}

func TestBuildTotalsOnly(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1, MinPrint: 0, Totals: true})
	require.NoError(t, err)
	require.Len(t, rep.Sections, 1)

	assert.Equal(t, SectionTotals, rep.Sections[0].Name)
	assert.Equal(t, []string{"x /data", "y /data"}, paths(rep.Sections[0].Rows))
}

func TestBuildRecursiveCoversEveryDirectory(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1, MinPrint: 0, Recursive: true})
	require.NoError(t, err)
	require.Len(t, rep.Sections, 1)

	assert.Equal(t, SectionSubfolders, rep.Sections[0].Name)
	assert.Equal(t, []string{"x /data", "x /data/sub", "y /data", "y /data/sub", "y /data/sub/deep"},
		paths(rep.Sections[0].Rows))
}

func TestBuildDefaultsToRecursive(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1})
	require.NoError(t, err)
	require.Len(t, rep.Sections, 1)
	assert.Equal(t, SectionSubfolders, rep.Sections[0].Name)
}

func TestBuildBothSections(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1, Totals: true, Recursive: true})
	require.NoError(t, err)
	require.Len(t, rep.Sections, 2)
	assert.Equal(t, SectionTotals, rep.Sections[0].Name)
	assert.Equal(t, SectionSubfolders, rep.Sections[1].Name)
}

func TestBuildDepthLimitsSubfolders(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1, Recursive: true, Totals: true, Depth: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"x /data", "y /data"}, paths(rep.Sections[0].Rows))
	assert.Equal(t, []string{"x /data", "x /data/sub", "y /data", "y /data/sub"}, paths(rep.Sections[1].Rows))
}

func TestBuildEmptySource(t *testing.T) {
	t.Parallel()

	rep, err := Build(fakeSource{Table: make(userstat.Table), base: "/data"}, Options{Unit: 1, Totals: true})
	require.NoError(t, err)
	require.Len(t, rep.Sections, 1)
	assert.Empty(t, rep.Sections[0].Rows)
}

func TestBuildRejectsNonPositiveUnit(t *testing.T) {
	t.Parallel()

	for _, unit := range []float64{0, -1} {
		_, err := Build(source(), Options{Unit: unit})
		require.ErrorIs(t, err, errInvalidUnit)
	}
}

func TestScaleTruncates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), Scale(500, 1000))
	assert.Equal(t, int64(1), Scale(1999, 1000))
	assert.Equal(t, int64(3), Scale(8, 2.5))
	assert.Equal(t, int64(12), Scale(12_345_678, 1e6))
}

func TestWriteFixedWidthRows(t *testing.T) {
	t.Parallel()

	rep := Report{Sections: []Section{{Name: SectionTotals, Rows: []Row{
		{User: "alice", Path: "/data", Scaled: 42},
		{User: "a-very-long-user-name", Path: "/data/sub", Scaled: 7},
	}}}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rep, Options{}))

	assert.Equal(t,
		"alice            42               /data\n"+
			"a-very-long-user-name 7                /data/sub\n",
		buf.String())
}

func TestWriteCustomWidth(t *testing.T) {
	t.Parallel()

	rep := Report{Sections: []Section{{Name: SectionTotals, Rows: []Row{{User: "bob", Path: "/p", Scaled: 1}}}}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rep, Options{Width: 4}))
	assert.Equal(t, "bob  1    /p\n", buf.String())
}

func TestWriteVerboseHeaders(t *testing.T) {
	t.Parallel()

	rep, err := Build(source(), Options{Unit: 1000, MinPrint: 1, Totals: true, Recursive: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rep, Options{Verbose: true}))

	out := buf.String()
	totals := strings.Index(out, "\n"+SectionTotals+"\n")
	subfolders := strings.Index(out, "\n"+SectionSubfolders+"\n")

	require.NotEqual(t, -1, totals)
	require.NotEqual(t, -1, subfolders)
	assert.Less(t, totals, subfolders)
}

func TestWriteBanner(t *testing.T) {
	t.Parallel()

	banner := Banner{
		Time:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Base:     "/data",
		Unit:     1e6,
		MinPrint: 0.5,
		Command:  "userstat -v /data",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBanner(&buf, banner))

	assert.Equal(t, strings.Join([]string{
		"2024-05-06 07:08:09 UTC",
		"Base path:  /data",
		"Unit:       1000000 bytes (1.0 MB)",
		"Min print:  0.5",
		"Command:    userstat -v /data",
	}, "\n")+"\n", buf.String())
}

func TestNewBannerReadsFilesystem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	banner := NewBanner(dir, Options{Unit: 1000, MinPrint: 2}, []string{"userstat", "-v", dir})

	assert.Equal(t, "userstat -v "+dir, banner.Command)
	assert.Equal(t, 1000.0, banner.Unit)

	var buf bytes.Buffer
	require.NoError(t, WriteBanner(&buf, banner))

	if banner.Filesystem != nil {
		assert.Contains(t, buf.String(), "Filesystem: ")
	}
}
