package dataset

import (
	"gonum.org/v1/gonum/stat"
)

// ColumnStats summarizes the length distribution of a string column.
type ColumnStats struct {
	Count     int
	MeanLen   float64
	StdDevLen float64
	MaxLen    int
}

// TextLengthStats computes character-length statistics for a string column.
// Non-string values are skipped.
func TextLengthStats(split *Split, column string) ColumnStats {
	lengths := make([]float64, 0, len(split.Records))
	maxLen := 0
	for _, rec := range split.Records {
		s, ok := rec[column].(string)
		if !ok {
			continue
		}
		lengths = append(lengths, float64(len(s)))
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	if len(lengths) == 0 {
		return ColumnStats{}
	}
	mean, std := stat.MeanStdDev(lengths, nil)
	return ColumnStats{
		Count:     len(lengths),
		MeanLen:   mean,
		StdDevLen: std,
		MaxLen:    maxLen,
	}
}
