package pipeline

import (
	"log/slog"

	"github.com/ZanzyTHEbar/textprep/prep/dataset"
)

// textColumnCandidates is scanned in order; the first name present in the
// split wins. Represented as an ordered slice, not a set, so priority is
// deterministic.
var textColumnCandidates = []string{"text", "content", "input_text", "sentence", "document"}

// DetectTextColumn resolves which column of the split holds the text to
// tokenize. An explicitly supplied name wins unconditionally and is not
// validated here; a bad explicit name surfaces later as a tokenization
// failure. Otherwise the candidate list is scanned, then any string-valued
// column in declared order. Detection fails closed: when no string column
// exists the error lists the available columns instead of guessing.
func DetectTextColumn(split *dataset.Split, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	for _, cand := range textColumnCandidates {
		if split.HasColumn(cand) {
			slog.Info("Auto-detected text column", "column", cand)
			return cand, nil
		}
	}

	first := split.First()
	for _, col := range split.Columns {
		if _, ok := first[col].(string); ok {
			slog.Info("Auto-detected text column from first string column", "column", col)
			return col, nil
		}
	}

	return "", NewPreparationError("could not detect text column, available columns: %v", split.Columns)
}
