package env

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// LoadEnv reads the given dotenv files (".env" when none are given) into the
// process environment. Variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		log.Debug().Err(err).Strs("paths", paths).Msg("No .env file loaded, using system environment variables")
		return err
	}
	return nil
}

func GetEnv(key string, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := GetEnv(key, ""); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := GetEnv(key, ""); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric environment value")
	}
	return defaultValue
}

// GetEnvBool accepts anything strconv.ParseBool does ("1", "true", "F", ...).
func GetEnvBool(key string, defaultValue bool) bool {
	if value := GetEnv(key, ""); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvDuration reads a whole number of units, e.g. GetEnvDuration("RUN_TIMEOUT_MINUTES", 30, time.Minute).
func GetEnvDuration(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(GetEnvInt(key, defaultValue)) * unit
}
