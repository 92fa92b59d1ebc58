package sviexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/svidx/svi-fetch/internal/svi"
)

// CSVSink appends one row per (series, point) to a flat CSV file,
// creating it with a header on first write.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Write(ctx context.Context, fetchedAt int64, table svi.Table) error {
	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("SVIEXPORT/CSV > open %s: %w", s.path, err)
	}
	defer f.Close()

	if err := writeCSVRows(f, fetchedAt, table, writeHeader); err != nil {
		return fmt.Errorf("SVIEXPORT/CSV > %w", err)
	}
	return nil
}

// encodeCSV renders table as a standalone CSV document, header
// included; used by sinks that upload a whole file per fetch (S3)
// rather than appending to one.
func encodeCSV(fetchedAt int64, table svi.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCSVRows(&buf, fetchedAt, table, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSVRows(dst io.Writer, fetchedAt int64, table svi.Table, writeHeader bool) error {
	w := csv.NewWriter(dst)
	defer w.Flush()

	if writeHeader {
		if err := w.Write([]string{"fetched_at", "series", "at", "value", "missing"}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, p := range table[key].Points {
			row := []string{
				strconv.FormatInt(fetchedAt, 10),
				key,
				strconv.FormatInt(p.At.Unix(), 10),
				strconv.FormatFloat(p.Value, 'f', -1, 64),
				strconv.FormatBool(p.Missing),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	return w.Error()
}
