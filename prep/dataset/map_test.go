package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSplit(n int) *Split {
	split := &Split{Name: TrainSplit, Columns: []string{"text"}}
	for i := 0; i < n; i++ {
		split.Records = append(split.Records, Record{"text": fmt.Sprintf("record %d", i)})
	}
	return split
}

func TestMapBatched(t *testing.T) {
	upper := func(ctx context.Context, batch []Record) ([]Record, error) {
		out := make([]Record, len(batch))
		for i, rec := range batch {
			out[i] = Record{
				"text":  rec["text"],
				"upper": strings.ToUpper(rec["text"].(string)),
			}
		}
		return out, nil
	}

	t.Run("preserves record order across parallel batches", func(t *testing.T) {
		split := makeSplit(257)
		mapped, err := MapBatched(context.Background(), split, upper, MapOptions{BatchSize: 10, NumWorkers: 8})
		require.NoError(t, err)
		require.Equal(t, 257, mapped.Len())
		for i, rec := range mapped.Records {
			assert.Equal(t, fmt.Sprintf("RECORD %d", i), rec["upper"])
		}
	})

	t.Run("drops mapped-over columns when still present", func(t *testing.T) {
		split := makeSplit(5)
		mapped, err := MapBatched(context.Background(), split, upper, MapOptions{
			BatchSize:     2,
			NumWorkers:    2,
			RemoveColumns: []string{"text"},
		})
		require.NoError(t, err)
		for _, rec := range mapped.Records {
			_, ok := rec["text"]
			assert.False(t, ok, "text column should be removed post-map")
		}
		assert.Equal(t, []string{"upper"}, mapped.Columns)
	})

	t.Run("tolerates map functions that already dropped the column", func(t *testing.T) {
		dropping := func(ctx context.Context, batch []Record) ([]Record, error) {
			out := make([]Record, len(batch))
			for i := range batch {
				out[i] = Record{"n": i}
			}
			return out, nil
		}
		split := makeSplit(3)
		mapped, err := MapBatched(context.Background(), split, dropping, MapOptions{
			BatchSize:     2,
			NumWorkers:    1,
			RemoveColumns: []string{"text"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"n"}, mapped.Columns)
	})

	t.Run("first batch error aborts the map", func(t *testing.T) {
		boom := errors.New("bad batch")
		failing := func(ctx context.Context, batch []Record) ([]Record, error) {
			if batch[0]["text"] == "record 4" {
				return nil, boom
			}
			return batch, nil
		}
		split := makeSplit(10)
		_, err := MapBatched(context.Background(), split, failing, MapOptions{BatchSize: 2, NumWorkers: 2})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), TrainSplit)
	})

	t.Run("length mismatch from the map function is rejected", func(t *testing.T) {
		shrinking := func(ctx context.Context, batch []Record) ([]Record, error) {
			return batch[:len(batch)-1], nil
		}
		split := makeSplit(4)
		_, err := MapBatched(context.Background(), split, shrinking, MapOptions{BatchSize: 4, NumWorkers: 1})
		require.Error(t, err)
	})

	t.Run("empty split maps to empty split with adjusted columns", func(t *testing.T) {
		split := &Split{Name: TrainSplit, Columns: []string{"text", "label"}}
		mapped, err := MapBatched(context.Background(), split, upper, MapOptions{RemoveColumns: []string{"text"}})
		require.NoError(t, err)
		assert.Equal(t, 0, mapped.Len())
		assert.Equal(t, []string{"label"}, mapped.Columns)
	})
}

func TestFilter(t *testing.T) {
	split := makeSplit(10)
	split.Records[3]["text"] = ""
	split.Records[7]["text"] = "   "

	kept := Filter(split, func(rec Record) bool {
		s, _ := rec["text"].(string)
		return strings.TrimSpace(s) != ""
	})
	assert.Equal(t, 8, kept.Len())
	assert.Equal(t, split.Columns, kept.Columns)

	sel := FilterIndex(split, func(rec Record) bool {
		s, _ := rec["text"].(string)
		return strings.TrimSpace(s) == ""
	})
	assert.Equal(t, 2, sel.Cardinality())
	assert.True(t, sel.Contains(3))
	assert.True(t, sel.Contains(7))
	assert.False(t, sel.Contains(0))
}

func TestTextLengthStats(t *testing.T) {
	split := &Split{
		Name:    TrainSplit,
		Columns: []string{"text", "n"},
		Records: []Record{
			{"text": "ab", "n": 1},
			{"text": "abcd", "n": 2},
			{"text": 99, "n": 3}, // non-string skipped
		},
	}

	stats := TextLengthStats(split, "text")
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 3.0, stats.MeanLen, 1e-9)
	assert.Equal(t, 4, stats.MaxLen)

	empty := TextLengthStats(split, "n")
	assert.Equal(t, 0, empty.Count)
}
