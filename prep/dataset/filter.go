package dataset

import (
	"github.com/RoaringBitmap/roaring"
)

// Selection is a bitmap of record indices within a split.
type Selection struct {
	bitmap *roaring.Bitmap
}

// Cardinality returns the number of selected records.
func (s *Selection) Cardinality() int {
	return int(s.bitmap.GetCardinality())
}

// Contains reports whether record index i is selected.
func (s *Selection) Contains(i int) bool {
	return s.bitmap.ContainsInt(i)
}

// FilterIndex evaluates pred over every record and returns the selection of
// matching indices without materializing a new split.
func FilterIndex(split *Split, pred func(Record) bool) *Selection {
	bm := roaring.New()
	for i, rec := range split.Records {
		if pred(rec) {
			bm.AddInt(i)
		}
	}
	return &Selection{bitmap: bm}
}

// Select materializes the selected records into a new split with the same
// declared columns.
func Select(split *Split, sel *Selection) *Split {
	out := &Split{
		Name:    split.Name,
		Columns: append([]string(nil), split.Columns...),
		Records: make([]Record, 0, sel.Cardinality()),
	}
	it := sel.bitmap.Iterator()
	for it.HasNext() {
		out.Records = append(out.Records, split.Records[it.Next()])
	}
	return out
}

// Filter is FilterIndex followed by Select.
func Filter(split *Split, pred func(Record) bool) *Split {
	return Select(split, FilterIndex(split, pred))
}
