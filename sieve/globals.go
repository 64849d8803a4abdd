package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName names the config directory and env prefix root
	DefaultAppName        = "sieve"
	DefaultAppCMDShortCut = "sieve"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)

	// Default directory layout, relative to the working directory
	DefaultDatasetDir      = "dataset"
	DefaultEssentialsDir   = "essentials"
	DefaultNonessentialDir = "nonessential"
	DefaultBackupSuffix    = ".copy"
	DefaultIgnoreFile      = "." + DefaultAppName + "ignore"

	// DefaultImagePattern is the glob used to list frames in the dataset
	DefaultImagePattern = "*.png"

	// Classification defaults. The threshold is in the comparator's score units.
	DefaultThreshold     = 200000.0
	DefaultMinRegionArea = 100

	// Change detection defaults
	DefaultPixelThreshold   = 45
	DefaultDilateIterations = 2
	DefaultBlackMask        = []int{5, 10, 5, 0}

	DefaultLogDir   = "."
	DefaultLogLevel = "info"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
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
