// Package training wraps a tokenized split into the index-addressable form
// a training loop consumes.
package training

import (
	"fmt"

	"github.com/ZanzyTHEbar/textprep/prep/dataset"
)

// Item is one training example: fixed-length token ids and attention mask.
type Item struct {
	InputIDs      []int64
	AttentionMask []int64
}

// Dataset exposes item-by-index access over a tokenized split together with
// the mask and pad token ids a masking-aware training loop needs.
type Dataset struct {
	items  []Item
	maskID int
	padID  int
}

// New validates that every record of the tokenized split carries input_ids
// and attention_mask and wraps it. Mask and pad ids are recorded as given.
func New(split *dataset.Split, maskTokenID, padTokenID int) (*Dataset, error) {
	items := make([]Item, len(split.Records))
	for i, rec := range split.Records {
		ids, ok := asInt64Slice(rec["input_ids"])
		if !ok {
			return nil, fmt.Errorf("record %d of split %s has no input_ids", i, split.Name)
		}
		mask, ok := asInt64Slice(rec["attention_mask"])
		if !ok {
			return nil, fmt.Errorf("record %d of split %s has no attention_mask", i, split.Name)
		}
		items[i] = Item{InputIDs: ids, AttentionMask: mask}
	}
	return &Dataset{items: items, maskID: maskTokenID, padID: padTokenID}, nil
}

// Len returns the number of items.
func (d *Dataset) Len() int { return len(d.items) }

// At returns the item at index i.
func (d *Dataset) At(i int) Item { return d.items[i] }

// MaskTokenID returns the mask token id the dataset was assembled with.
func (d *Dataset) MaskTokenID() int { return d.maskID }

// PadTokenID returns the pad token id the dataset was assembled with.
func (d *Dataset) PadTokenID() int { return d.padID }

func asInt64Slice(v any) ([]int64, bool) {
	switch s := v.(type) {
	case []int64:
		return s, true
	case []int:
		out := make([]int64, len(s))
		for i, n := range s {
			out[i] = int64(n)
		}
		return out, true
	case []any:
		out := make([]int64, len(s))
		for i, n := range s {
			switch x := n.(type) {
			case float64:
				out[i] = int64(x)
			case int64:
				out[i] = x
			case int:
				out[i] = int64(x)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
