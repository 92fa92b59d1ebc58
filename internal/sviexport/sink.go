// Package sviexport writes a fetched svi.Table to one of several
// output sinks: a flat CSV file, a local SQLite database for
// longitudinal querying, or an S3-compatible object store.
package sviexport

import (
	"context"

	"github.com/svidx/svi-fetch/internal/svi"
)

// Sink persists one fetched Table. Write is a one-shot append, not an
// implicit cache: calling it twice writes the data twice.
type Sink interface {
	Write(ctx context.Context, fetchedAt int64, table svi.Table) error
}
