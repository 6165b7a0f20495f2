package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/textprep/prep/dataset"
)

func tokenizedSplit() *dataset.Split {
	return &dataset.Split{
		Name:    dataset.TrainSplit,
		Columns: []string{"input_ids", "attention_mask"},
		Records: []dataset.Record{
			{"input_ids": []int64{1, 2, 0, 0}, "attention_mask": []int64{1, 1, 0, 0}},
			{"input_ids": []int64{3, 0, 0, 0}, "attention_mask": []int64{1, 0, 0, 0}},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("wraps a tokenized split with index access", func(t *testing.T) {
		ds, err := New(tokenizedSplit(), 7, 0)
		require.NoError(t, err)

		assert.Equal(t, 2, ds.Len())
		assert.Equal(t, []int64{1, 2, 0, 0}, ds.At(0).InputIDs)
		assert.Equal(t, []int64{1, 0, 0, 0}, ds.At(1).AttentionMask)
		assert.Equal(t, 7, ds.MaskTokenID())
		assert.Equal(t, 0, ds.PadTokenID())
	})

	t.Run("rejects records without input_ids", func(t *testing.T) {
		split := tokenizedSplit()
		delete(split.Records[1], "input_ids")

		_, err := New(split, 7, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input_ids")
		assert.Contains(t, err.Error(), "record 1")
	})

	t.Run("rejects records without attention_mask", func(t *testing.T) {
		split := tokenizedSplit()
		delete(split.Records[0], "attention_mask")

		_, err := New(split, 7, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attention_mask")
	})

	t.Run("accepts JSON-decoded numeric slices", func(t *testing.T) {
		split := &dataset.Split{
			Name:    dataset.TrainSplit,
			Columns: []string{"input_ids", "attention_mask"},
			Records: []dataset.Record{
				{"input_ids": []any{1.0, 2.0}, "attention_mask": []any{1.0, 1.0}},
			},
		}
		ds, err := New(split, 7, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ds.At(0).InputIDs)
	})
}
