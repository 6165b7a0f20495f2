// Package pipeline orchestrates dataset preparation for language-model
// training: tokenizer provisioning, raw dataset loading, text column
// detection, parallel tokenization, and training-dataset assembly.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/textprep/prep"
	"github.com/ZanzyTHEbar/textprep/prep/dataset"
	"github.com/ZanzyTHEbar/textprep/prep/tokenizer"
	"github.com/ZanzyTHEbar/textprep/prep/training"
)

// Options configure one preparation run. Zero values fall back to the
// package defaults; only DatasetName is mandatory.
type Options struct {
	DatasetName   string
	TokenizerName string
	MaxLength     int
	CacheDir      string
	NumWorkers    int
	BatchSize     int

	// TextColumn skips auto-detection when set. It is used unconditionally,
	// even when absent from the dataset; that surfaces as a tokenization
	// failure rather than a detection failure.
	TextColumn string

	// DropEmpty removes records whose text column is empty or whitespace
	// before tokenization.
	DropEmpty bool
}

func (o *Options) applyDefaults() {
	if o.TokenizerName == "" {
		o.TokenizerName = internal.DefaultTokenizerName
	}
	if o.MaxLength <= 0 {
		o.MaxLength = internal.DefaultMaxLength
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = internal.DefaultNumWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = internal.DefaultBatchSize
	}
}

// Result holds the outputs of a successful preparation. Validation is nil
// when the raw dataset has no validation split; callers must branch on
// presence.
type Result struct {
	Train      *training.Dataset
	Validation *training.Dataset
	Tokenizer  *tokenizer.Handle
}

// Preparer runs preparation pipelines.
type Preparer struct {
	assertHandler *assert.AssertHandler
}

// NewPreparer creates a Preparer.
func NewPreparer() *Preparer {
	return &Preparer{assertHandler: assert.NewAssertHandler()}
}

// Prepare is a convenience wrapper around NewPreparer().Prepare.
func Prepare(ctx context.Context, opts Options) (*Result, error) {
	return NewPreparer().Prepare(ctx, opts)
}

// Prepare runs the full preparation sequence. It either fully succeeds or
// returns a *PreparationError; there is no partial result and no retry.
func (p *Preparer) Prepare(ctx context.Context, opts Options) (*Result, error) {
	logger := internal.GetLogger().With().Str("run_id", uuid.NewString()).Logger()

	res, err := p.prepare(ctx, opts, logger)
	if err != nil {
		if !IsPreparationError(err) {
			err = NewPreparationError("dataset preparation failed: %v", err)
		}
		logger.Error().Err(err).Msg("Dataset preparation failed")
		return nil, err
	}
	return res, nil
}

func (p *Preparer) prepare(ctx context.Context, opts Options, logger zerolog.Logger) (*Result, error) {
	opts.applyDefaults()
	if opts.DatasetName == "" {
		return nil, NewPreparationError("dataset name cannot be empty")
	}

	logger.Info().Str("tokenizer", opts.TokenizerName).Msg("Loading tokenizer")
	tok, err := tokenizer.Load(ctx, opts.TokenizerName, opts.CacheDir, opts.MaxLength)
	if err != nil {
		return nil, NewPreparationError("failed to load tokenizer %s: %v", opts.TokenizerName, err)
	}
	p.assertHandler.Assert(ctx, tok.MaskTokenID() != tok.PadTokenID(), "mask and pad token ids must be distinct after provisioning")

	logger.Info().Str("dataset", opts.DatasetName).Msg("Loading dataset")
	ds, err := dataset.Load(ctx, opts.DatasetName, opts.CacheDir)
	if err != nil {
		return nil, NewPreparationError("failed to load dataset %s: %v", opts.DatasetName, err)
	}

	train, err := ds.Split(dataset.TrainSplit)
	if err != nil {
		return nil, NewPreparationError("failed to load dataset %s: %v", opts.DatasetName, err)
	}

	textColumn, err := DetectTextColumn(train, opts.TextColumn)
	if err != nil {
		return nil, err
	}

	stats := dataset.TextLengthStats(train, textColumn)
	logger.Info().
		Str("text_column", textColumn).
		Int("records", train.Len()).
		Float64("mean_text_len", stats.MeanLen).
		Int("max_text_len", stats.MaxLen).
		Msg("Resolved text column")

	if opts.DropEmpty {
		for _, name := range ds.SplitNames() {
			split, _ := ds.Split(name)
			kept := dataset.Filter(split, func(rec dataset.Record) bool {
				s, ok := rec[textColumn].(string)
				return ok && strings.TrimSpace(s) != ""
			})
			logger.Info().Str("split", name).Int("before", split.Len()).Int("after", kept.Len()).Msg("Dropped empty records")
			ds.SetSplit(kept)
		}
	}

	logger.Info().Msg("Tokenizing dataset")
	tokenized, err := p.tokenizeAll(ctx, ds, tok, textColumn, opts)
	if err != nil {
		return nil, NewPreparationError("tokenization failed: %v", err)
	}

	trainTokenized, err := tokenized.Split(dataset.TrainSplit)
	if err != nil {
		return nil, NewPreparationError("tokenization failed: %v", err)
	}
	trainDataset, err := training.New(trainTokenized, tok.MaskTokenID(), tok.PadTokenID())
	if err != nil {
		return nil, NewPreparationError("failed to assemble training dataset: %v", err)
	}

	var valDataset *training.Dataset
	if tokenized.HasSplit(dataset.ValidationSplit) {
		valTokenized, _ := tokenized.Split(dataset.ValidationSplit)
		valDataset, err = training.New(valTokenized, tok.MaskTokenID(), tok.PadTokenID())
		if err != nil {
			return nil, NewPreparationError("failed to assemble validation dataset: %v", err)
		}
	}

	logger.Info().
		Int("train_records", trainDataset.Len()).
		Bool("has_validation", valDataset != nil).
		Msg("Dataset preparation complete")

	return &Result{Train: trainDataset, Validation: valDataset, Tokenizer: tok}, nil
}

// tokenizeAll maps the tokenize function over every split of the dataset in
// parallel batches. The text column is removed from the output when still
// present post-map.
func (p *Preparer) tokenizeAll(ctx context.Context, ds *dataset.Dataset, tok *tokenizer.Handle, textColumn string, opts Options) (*dataset.Dataset, error) {
	mapOpts := dataset.MapOptions{
		BatchSize:     opts.BatchSize,
		NumWorkers:    opts.NumWorkers,
		RemoveColumns: []string{textColumn},
	}

	out := dataset.New()
	for _, name := range ds.SplitNames() {
		split, err := ds.Split(name)
		if err != nil {
			return nil, err
		}
		mapped, err := dataset.MapBatched(ctx, split, tokenizeFunc(tok, textColumn), mapOpts)
		if err != nil {
			return nil, err
		}
		p.assertHandler.Assert(ctx, mapped.Len() == split.Len(), "tokenization must preserve record count")
		out.SetSplit(mapped)
	}
	return out, nil
}

// tokenizeFunc builds the batch map function: extracts the text column,
// encodes with the fixed pad/truncate policy, and merges token ids and
// attention masks into copies of the records.
func tokenizeFunc(tok *tokenizer.Handle, textColumn string) dataset.MapFunc {
	return func(ctx context.Context, batch []dataset.Record) ([]dataset.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		texts := make([]string, len(batch))
		for i, rec := range batch {
			val, ok := rec[textColumn]
			if !ok {
				return nil, fmt.Errorf("record has no column %q", textColumn)
			}
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("column %q is not a string (got %T)", textColumn, val)
			}
			texts[i] = s
		}

		ids, masks, err := tok.EncodeBatch(texts)
		if err != nil {
			return nil, err
		}

		out := make([]dataset.Record, len(batch))
		for i, rec := range batch {
			mapped := make(dataset.Record, len(rec)+2)
			for k, v := range rec {
				mapped[k] = v
			}
			mapped["input_ids"] = ids[i]
			mapped["attention_mask"] = masks[i]
			out[i] = mapped
		}
		return out, nil
	}
}
