package sviexport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/svidx/svi-fetch/internal/svi"
)

// jsonDocument is the wire shape one JSONSink.Write call appends to
// its output file: one line per fetch, newest last.
type jsonDocument struct {
	FetchedAt int64                `json:"fetchedAt"`
	Series    map[string]jsonRange `json:"series"`
}

type jsonRange struct {
	Points []jsonPoint `json:"points"`
}

type jsonPoint struct {
	At      int64   `json:"at"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

// JSONSink appends one JSON-lines document per fetch to a flat file,
// the same append-don't-overwrite shape as CSVSink.
type JSONSink struct {
	path string
}

func NewJSONSink(path string) *JSONSink {
	return &JSONSink{path: path}
}

func (s *JSONSink) Write(ctx context.Context, fetchedAt int64, table svi.Table) error {
	doc := encodeJSON(fetchedAt, table)

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("SVIEXPORT/JSON > marshal: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("SVIEXPORT/JSON > open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("SVIEXPORT/JSON > write %s: %w", s.path, err)
	}
	return nil
}

func encodeJSON(fetchedAt int64, table svi.Table) jsonDocument {
	series := make(map[string]jsonRange, len(table))

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s := table[key]
		points := make([]jsonPoint, len(s.Points))
		for i, p := range s.Points {
			points[i] = jsonPoint{At: p.At.Unix(), Value: p.Value, Missing: p.Missing}
		}
		series[key] = jsonRange{Points: points}
	}

	return jsonDocument{FetchedAt: fetchedAt, Series: series}
}
