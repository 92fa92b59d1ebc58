package sviexport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svidx/svi-fetch/internal/svi"
)

func sampleTable() svi.Table {
	return svi.Table{
		"apple": svi.Series{Name: "apple", Points: []svi.Point{
			{At: time.Unix(1000, 0), Value: 10},
			{At: time.Unix(2000, 0), Value: 20},
		}},
	}
}

func TestCSVSinkWritesHeaderOnceAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink := NewCSVSink(path)

	require.NoError(t, sink.Write(context.Background(), 42, sampleTable()))
	require.NoError(t, sink.Write(context.Background(), 43, sampleTable()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := splitLines(string(content))
	assert.Equal(t, "fetched_at,series,at,value,missing", lines[0])
	assert.Len(t, lines, 1+2+2) // header + 2 points per write x 2 writes
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func TestSQLiteSinkCreatesTableAndInserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	sink, err := NewSQLiteSink(path, "")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(context.Background(), 99, sampleTable()))

	var count int
	require.NoError(t, sink.db.Get(&count, "SELECT COUNT(*) FROM svi_points"))
	assert.Equal(t, 2, count)
}

func TestJSONSinkAppendsOneDocumentPerWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink := NewJSONSink(path)

	require.NoError(t, sink.Write(context.Background(), 42, sampleTable()))
	require.NoError(t, sink.Write(context.Background(), 43, sampleTable()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := splitLines(string(content))
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"fetchedAt":42`)
	assert.Contains(t, lines[1], `"fetchedAt":43`)
	assert.Contains(t, lines[0], `"apple"`)
}

func TestNewS3SinkRejectsEmptyBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	require.Error(t, err)
}

func TestEncodeCSVProducesHeaderAndRows(t *testing.T) {
	body, err := encodeCSV(7, sampleTable())
	require.NoError(t, err)
	lines := splitLines(string(body))
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "apple")
}
