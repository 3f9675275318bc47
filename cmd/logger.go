package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultEnvFile = ".env"

// newLogger creates a logger at the LOG_LEVEL level, or debug when verbose.
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()

	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return log
	}

	log.SetLevel(levelFromEnv(os.Getenv("LOG_LEVEL")))

	return log
}

func levelFromEnv(value string) logrus.Level {
	if value == "" {
		return logrus.InfoLevel
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(value))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid LOG_LEVEL '%s', defaulting to 'info'\n", value)
		return logrus.InfoLevel
	}

	return level
}

// LoadEnvFile loads the given dotenv file. An absent default .env is fine.
func LoadEnvFile(file string) error {
	if file == "" {
		file = defaultEnvFile
	}

	if err := godotenv.Load(file); err != nil {
		if file == defaultEnvFile && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load env file '%s': %w", file, err)
	}

	return nil
}
