package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
)

// MapFunc transforms one batch of records into the same number of output
// records. Batches are disjoint; implementations must not share mutable
// state across calls.
type MapFunc func(ctx context.Context, batch []Record) ([]Record, error)

// MapOptions configure a batched parallel map.
type MapOptions struct {
	BatchSize     int
	NumWorkers    int
	RemoveColumns []string
}

// MapBatched applies fn to the split's records in parallel batches and
// returns a new split. Record order is preserved. RemoveColumns are dropped
// from the output records when the map function left them in place. The
// first batch error cancels the remaining work and is returned.
func MapBatched(ctx context.Context, split *Split, fn MapFunc, opts MapOptions) (*Split, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}

	n := len(split.Records)
	out := make([]Record, n)
	numBatches := (n + opts.BatchSize - 1) / opts.BatchSize

	slog.Debug("Mapping split",
		"split", split.Name,
		"records", n,
		"batches", numBatches,
		"workers", opts.NumWorkers)

	p := pool.New().WithMaxGoroutines(opts.NumWorkers).WithContext(ctx).WithCancelOnError()
	for b := 0; b < numBatches; b++ {
		start := b * opts.BatchSize
		end := min(start+opts.BatchSize, n)
		p.Go(func(ctx context.Context) error {
			mapped, err := fn(ctx, split.Records[start:end])
			if err != nil {
				return fmt.Errorf("batch [%d:%d] of split %s: %w", start, end, split.Name, err)
			}
			if len(mapped) != end-start {
				return fmt.Errorf("map function returned %d records for batch of %d in split %s", len(mapped), end-start, split.Name)
			}
			copy(out[start:end], mapped)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	// Drop mapped-over columns only if the map function did not already.
	for _, rec := range out {
		for _, col := range opts.RemoveColumns {
			delete(rec, col)
		}
	}

	result := &Split{Name: split.Name, Records: out}
	if n > 0 {
		result.Columns = columnsFromRecord(split.Columns, out[0])
	} else {
		result.Columns = removeColumns(split.Columns, opts.RemoveColumns)
	}
	return result, nil
}

func removeColumns(cols, drop []string) []string {
	if len(drop) == 0 {
		return append([]string(nil), cols...)
	}
	dropped := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropped[d] = true
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !dropped[c] {
			out = append(out, c)
		}
	}
	return out
}
