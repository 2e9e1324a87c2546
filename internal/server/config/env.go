package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// loadEnvFile loads the dotenv file named by -E/-env, or ./.env when present.
// Variables already set in the process environment win.
func loadEnvFile() error {
	path := flagx.EnvFileFlags()
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	return godotenv.Load(path)
}

// parseEnv overlays environment variables onto config.
//
//	SERVER_ADDRESS, STORE_DRIVER, DATABASE_DSN, MONGO_URI, MONGO_DATABASE,
//	MESSAGE_KEY, MESSAGE_KEY_SALT, SECRET_KEY, RESUME_TOKEN_TTL, BCRYPT_COST,
//	MAX_LINE_BYTES, WRITE_TIMEOUT, FILE_STORAGE, S3_ROOT_USER,
//	S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	METRICS_ADDRESS, HEALTH_ADDRESS, LOG_LEVEL
//
// Malformed numbers or durations panic, like a malformed config file.
func parseEnv(config *Config) {
	if err := loadEnvFile(); err != nil {
		panic(err)
	}

	envString(&config.ServerAddr, "SERVER_ADDRESS")
	envString(&config.StoreDriver, "STORE_DRIVER")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.MongoURI, "MONGO_URI")
	envString(&config.MongoDatabase, "MONGO_DATABASE")
	envString(&config.MessageKey, "MESSAGE_KEY")
	envString(&config.MessageKeySalt, "MESSAGE_KEY_SALT")
	envString(&config.SecretKey, "SECRET_KEY")
	envDuration(&config.ResumeTokenValidityDuration, "RESUME_TOKEN_TTL")
	envInt(&config.BcryptCost, "BCRYPT_COST")
	envInt(&config.MaxLineBytes, "MAX_LINE_BYTES")
	envDuration(&config.WriteTimeout, "WRITE_TIMEOUT")
	envString(&config.FileStorage, "FILE_STORAGE")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.MetricsAddr, "METRICS_ADDRESS")
	envString(&config.HealthAddr, "HEALTH_ADDRESS")
	envString(&config.WSAddr, "WS_ADDRESS")
	envString(&config.LogLevel, "LOG_LEVEL")
}

// envString applies a variable when it is set, even to "".
func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
