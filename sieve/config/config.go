package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/frame-sieve/sieve"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Sieve   SieveConfig   `mapstructure:"sieve"`
	Imaging ImagingConfig `mapstructure:"imaging"`
	Log     LogConfig     `mapstructure:"log"`
}

// SieveConfig stores the directory layout and classification policy.
type SieveConfig struct {
	DatasetDir      string  `mapstructure:"datasetDir"`
	EssentialsDir   string  `mapstructure:"essentialsDir"`
	NonessentialDir string  `mapstructure:"nonessentialDir"`
	BackupSuffix    string  `mapstructure:"backupSuffix"`
	Pattern         string  `mapstructure:"pattern"`
	IgnoreFile      string  `mapstructure:"ignoreFile"`
	Threshold       float64 `mapstructure:"threshold"`
	MinRegionArea   int     `mapstructure:"minRegionArea"`
	DryRun          bool    `mapstructure:"dryRun"`
}

// ImagingConfig stores the change detection parameters.
type ImagingConfig struct {
	PixelThreshold   int   `mapstructure:"pixelThreshold"`
	DilateIterations int   `mapstructure:"dilateIterations"`
	BlurRadii        []int `mapstructure:"blurRadii"`
	BlackMask        []int `mapstructure:"blackMask"`
}

// LogConfig stores the run log settings.
type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("sieve.datasetDir", internal.DefaultDatasetDir)
	v.SetDefault("sieve.essentialsDir", internal.DefaultEssentialsDir)
	v.SetDefault("sieve.nonessentialDir", internal.DefaultNonessentialDir)
	v.SetDefault("sieve.backupSuffix", internal.DefaultBackupSuffix)
	v.SetDefault("sieve.pattern", internal.DefaultImagePattern)
	v.SetDefault("sieve.ignoreFile", internal.DefaultIgnoreFile)
	v.SetDefault("sieve.threshold", internal.DefaultThreshold)
	v.SetDefault("sieve.minRegionArea", internal.DefaultMinRegionArea)
	v.SetDefault("sieve.dryRun", false)

	v.SetDefault("imaging.pixelThreshold", internal.DefaultPixelThreshold)
	v.SetDefault("imaging.dilateIterations", internal.DefaultDilateIterations)
	v.SetDefault("imaging.blurRadii", []int{})
	v.SetDefault("imaging.blackMask", internal.DefaultBlackMask)

	v.SetDefault("log.dir", internal.DefaultLogDir)
	v.SetDefault("log.level", internal.DefaultLogLevel)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // sieve.threshold becomes SIEVE_THRESHOLD

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &AppConfig, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Sieve.DatasetDir == "" || c.Sieve.EssentialsDir == "" || c.Sieve.NonessentialDir == "" {
		return fmt.Errorf("dataset, essentials and nonessential directories must be set")
	}
	if c.Sieve.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %v", c.Sieve.Threshold)
	}
	if c.Sieve.MinRegionArea < 0 {
		return fmt.Errorf("minRegionArea must be non-negative, got %d", c.Sieve.MinRegionArea)
	}
	if _, err := filepath.Match(c.Sieve.Pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", c.Sieve.Pattern, err)
	}
	if c.Sieve.BackupSuffix == "" {
		return fmt.Errorf("backupSuffix cannot be empty")
	}
	if n := len(c.Imaging.BlackMask); n != 0 && n != 4 {
		return fmt.Errorf("blackMask needs 4 values (left, top, right, bottom), got %d", n)
	}
	return nil
}
