package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/irstream/record"
)

const sampleLog = `1700000000000 INFO service started on port 8080
1700000000500 WARN disk usage at 91.5%
1700000000250 ERROR connection refused by db-01
  at pool.dial(pool.go:42)
1700000090000 INFO shutting down
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func encodeSample(t *testing.T, extra ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.clp.zst")
	args := append([]string{"encode", "-", "--out", path, "--level-attribute"}, extra...)
	_, _, err := run(t, sampleLog, args...)
	require.NoError(t, err)

	return path
}

func TestEncodeDecode(t *testing.T) {
	path := encodeSample(t)

	out, _, err := run(t, "", "decode", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, "2023-11-14 22:13:20.000+00:00 INFO service started on port 8080", lines[0])
	require.Equal(t, "2023-11-14 22:13:20.250+00:00 ERROR connection refused by db-01", lines[2])
	require.Equal(t, "  at pool.dial(pool.go:42)", lines[3])
}

func TestDecode_TimezoneAndIndex(t *testing.T) {
	path := encodeSample(t)

	out, _, err := run(t, "", "decode", path, "--tz", "Asia/Tokyo", "--with-index")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "0\t2023-11-15 07:13:20.000+09:00 INFO"))
}

func TestDecode_Msgpack(t *testing.T) {
	path := encodeSample(t)

	out, _, err := run(t, "", "decode", path, "--output", "msgpack", "--compression", "zstd")
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// The first record is decodable on its own; records are self-delimiting maps.
	rec, err := record.Unmarshal([]byte(out)[:firstRecordLength(t, path)])
	require.NoError(t, err)
	require.Equal(t, int64(1700000000000), rec.Timestamp())
	require.Equal(t, " INFO service started on port 8080", rec.Message())
}

// firstRecordLength returns the msgpack length of the first record alone.
func firstRecordLength(t *testing.T, path string) int {
	t.Helper()

	out, _, err := run(t, "", "search", path, "--output", "msgpack", "--to", "1700000000000", "--margin", "0s")
	require.NoError(t, err)

	return len(out)
}

func TestSearch(t *testing.T) {
	path := encodeSample(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "wildcard",
			args: []string{"--wildcard", "*refused*"},
			want: []string{"2023-11-14 22:13:20.250+00:00 ERROR connection refused by db-01"},
		},
		{
			name: "case-sensitive miss",
			args: []string{"--wildcard", "*REFUSED*", "--case-sensitive"},
			want: nil,
		},
		{
			name: "attribute",
			args: []string{"--attr", "level=INFO"},
			want: []string{
				"2023-11-14 22:13:20.000+00:00 INFO service started on port 8080",
				"2023-11-14 22:14:50.000+00:00 INFO shutting down",
			},
		},
		{
			name: "time range",
			args: []string{"--from", "1700000000100", "--to", "2023-11-14T22:13:21Z", "--margin", "1s"},
			want: []string{
				"2023-11-14 22:13:20.500+00:00 WARN disk usage at 91.5%",
				"2023-11-14 22:13:20.250+00:00 ERROR connection refused by db-01",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, "", append([]string{"search", path}, tt.args...)...)
			require.NoError(t, err)

			var got []string
			for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
				if strings.HasPrefix(line, "2023") {
					got = append(got, line)
				}
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSearch_UndeclaredAttribute(t *testing.T) {
	path := encodeSample(t)

	_, _, err := run(t, "", "search", path, "--attr", "host=db-01")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not declared")
}

func TestStats(t *testing.T) {
	path := encodeSample(t, "--out-compression", "lz4")

	out, stderr, err := run(t, "", "stats", path, "--print-metrics")
	require.NoError(t, err)
	require.Contains(t, out, "compression:   LZ4")
	require.Contains(t, out, "records:       4")
	require.Contains(t, out, "level: str")
	require.Contains(t, stderr, "irstream_records_decoded_total")
}

func TestEnvironmentDefaults(t *testing.T) {
	path := encodeSample(t)
	t.Setenv("IRSTREAM_WITH_INDEX", "true")

	out, _, err := run(t, "", "decode", path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "0\t"))
}

func TestEncode_Errors(t *testing.T) {
	_, _, err := run(t, "no timestamps here\n", "encode", "-")
	require.Error(t, err)

	_, _, err = run(t, sampleLog, "encode", "-", "--out-compression", "auto")
	require.Error(t, err)

	_, _, err = run(t, "", "decode", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
