package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config and cache path resolution
	DefaultAppName        = "textprep"
	DefaultAppCMDShortCut = "textprep"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCacheDir       = filepath.Join(DefaultConfigPath, ".cache")

	// DefaultHubEndpoint is the base URL artifacts are fetched from
	DefaultHubEndpoint = "https://huggingface.co"

	// Default preparation settings
	DefaultTokenizerName = "gpt2"
	DefaultMaxLength     = 1024
	DefaultNumWorkers    = 4
	DefaultBatchSize     = 1000
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			// Last resort - use tmp directory
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
