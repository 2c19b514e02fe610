package table

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "orders.csv")

	tbl := New("orders", []string{"order_id", "total"})
	tbl.Append("O-1", "12.5")
	tbl.Append("O-2", "")

	require.NoError(t, tbl.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "orders", got.Name)
	require.Equal(t, []string{"order_id", "total"}, got.Header)
	require.Len(t, got.Rows, 2)
	require.Equal(t, "O-2", got.Get(got.Rows[1], "order_id"))
	require.Equal(t, "", got.Get(got.Rows[1], "total"))
}

func TestWriteFileLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kpi.csv")

	tbl := New("kpi", []string{"a"})
	tbl.Append("1")
	require.NoError(t, tbl.WriteFile(path))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestReadEmptyInput(t *testing.T) {
	got, err := Read(strings.NewReader(""), "empty")
	require.NoError(t, err)
	require.Empty(t, got.Rows)

	got, err = Read(strings.NewReader("a,b\n"), "header_only")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got.Header)
	require.Empty(t, got.Rows)
}

func TestRequireReportsSchemaDrift(t *testing.T) {
	tbl := New("reports", []string{"report_date", "restaurant_id"})

	require.NoError(t, tbl.Require("report_date", "restaurant_id"))

	err := tbl.Require("report_date", "cuisine")
	require.Error(t, err)

	var drift *SchemaDriftError
	require.True(t, errors.As(err, &drift))
	require.Equal(t, "reports", drift.Table)
	require.Equal(t, "cuisine", drift.Column)
}

func TestNullEncodingRoundTrip(t *testing.T) {
	require.Equal(t, "", FormatFloat(nil))
	require.Equal(t, "", FormatInt(nil))
	require.Equal(t, "", FormatBool(nil))
	require.Equal(t, "", FormatTime(nil))

	f := 12.25
	i := 7
	b := true
	ts := time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)
	require.Equal(t, "12.25", FormatFloat(&f))
	require.Equal(t, "7", FormatInt(&i))
	require.Equal(t, "true", FormatBool(&b))
	require.Equal(t, "2024-04-01T09:30:00Z", FormatTime(&ts))

	gotF, err := ParseFloat("12.25")
	require.NoError(t, err)
	require.Equal(t, f, *gotF)

	gotI, err := ParseInt("7")
	require.NoError(t, err)
	require.Equal(t, i, *gotI)

	gotB, err := ParseBool("true")
	require.NoError(t, err)
	require.True(t, *gotB)

	gotT, err := ParseTime("2024-04-01T09:30:00Z")
	require.NoError(t, err)
	require.True(t, ts.Equal(*gotT))

	for _, parse := range []func(string) (interface{}, error){
		func(s string) (interface{}, error) { v, err := ParseFloat(s); return v, err },
		func(s string) (interface{}, error) { v, err := ParseInt(s); return v, err },
		func(s string) (interface{}, error) { v, err := ParseBool(s); return v, err },
		func(s string) (interface{}, error) { v, err := ParseTime(s); return v, err },
	} {
		got, err := parse("")
		require.NoError(t, err)
		require.Nil(t, got)
	}
}

func TestGetUnknownColumn(t *testing.T) {
	tbl := New("t", []string{"a"})
	tbl.Append("x")
	require.Equal(t, "", tbl.Get(tbl.Rows[0], "missing"))
}
