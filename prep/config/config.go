package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/textprep/prep"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Prepare PrepareConfig `mapstructure:"prepare"`
}

// PrepareConfig stores dataset preparation settings.
type PrepareConfig struct {
	DatasetName   string `mapstructure:"datasetName"`
	TokenizerName string `mapstructure:"tokenizerName"`
	MaxLength     int    `mapstructure:"maxLength"`
	CacheDir      string `mapstructure:"cacheDir"`
	NumWorkers    int    `mapstructure:"numWorkers"`
	BatchSize     int    `mapstructure:"batchSize"`
	TextColumn    string `mapstructure:"textColumn"`
	DropEmpty     bool   `mapstructure:"dropEmpty"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("prepare.tokenizerName", internal.DefaultTokenizerName)
	viper.SetDefault("prepare.maxLength", internal.DefaultMaxLength)
	viper.SetDefault("prepare.cacheDir", internal.DefaultCacheDir)
	viper.SetDefault("prepare.numWorkers", internal.DefaultNumWorkers)
	viper.SetDefault("prepare.batchSize", internal.DefaultBatchSize)
	viper.SetDefault("prepare.dropEmpty", false)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // prepare.maxLength becomes PREPARE_MAXLENGTH

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
