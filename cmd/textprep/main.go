package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	internal "github.com/ZanzyTHEbar/textprep/prep"
	"github.com/ZanzyTHEbar/textprep/prep/config"
	"github.com/ZanzyTHEbar/textprep/prep/pipeline"
)

func main() {
	logger := internal.GetLogger()

	var (
		configPath string
		opts       pipeline.Options
	)

	flags := pflag.NewFlagSet(internal.DefaultAppCMDShortCut, pflag.ExitOnError)
	flags.StringVar(&configPath, "config", "", "path to config file")
	flags.StringVar(&opts.DatasetName, "dataset", "", "dataset identifier (path, URL, or hub id)")
	flags.StringVar(&opts.TokenizerName, "tokenizer", "", "tokenizer identifier (hub id or tokenizer.json path)")
	flags.IntVar(&opts.MaxLength, "max-length", 0, "maximum sequence length")
	flags.StringVar(&opts.CacheDir, "cache-dir", "", "artifact cache directory")
	flags.IntVar(&opts.NumWorkers, "num-workers", 0, "parallel tokenization workers")
	flags.IntVar(&opts.BatchSize, "batch-size", 0, "tokenization batch size")
	flags.StringVar(&opts.TextColumn, "text-column", "", "text column name (auto-detect when empty)")
	flags.BoolVar(&opts.DropEmpty, "drop-empty", false, "drop records with empty text")
	if err := flags.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse flags")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	applyConfig(&opts, &cfg.Prepare, flags)

	if opts.DatasetName == "" {
		logger.Fatal().Msg("A dataset is required: pass --dataset or set prepare.datasetName")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Prepare(ctx, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Preparation failed")
	}

	fmt.Printf("train records:      %d\n", result.Train.Len())
	if result.Validation != nil {
		fmt.Printf("validation records: %d\n", result.Validation.Len())
	} else {
		fmt.Println("validation records: (no validation split)")
	}
	fmt.Printf("vocab size:         %d\n", result.Tokenizer.VocabSize())
	fmt.Printf("mask token id:      %d\n", result.Tokenizer.MaskTokenID())
	fmt.Printf("pad token id:       %d\n", result.Tokenizer.PadTokenID())
}

// applyConfig fills options from config values for every flag the user did
// not set explicitly.
func applyConfig(opts *pipeline.Options, cfg *config.PrepareConfig, flags *pflag.FlagSet) {
	if !flags.Changed("dataset") && cfg.DatasetName != "" {
		opts.DatasetName = cfg.DatasetName
	}
	if !flags.Changed("tokenizer") {
		opts.TokenizerName = cfg.TokenizerName
	}
	if !flags.Changed("max-length") {
		opts.MaxLength = cfg.MaxLength
	}
	if !flags.Changed("cache-dir") {
		opts.CacheDir = cfg.CacheDir
	}
	if !flags.Changed("num-workers") {
		opts.NumWorkers = cfg.NumWorkers
	}
	if !flags.Changed("batch-size") {
		opts.BatchSize = cfg.BatchSize
	}
	if !flags.Changed("text-column") {
		opts.TextColumn = cfg.TextColumn
	}
	if !flags.Changed("drop-empty") {
		opts.DropEmpty = cfg.DropEmpty
	}
}
