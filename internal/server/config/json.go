package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// strings such as "10s" or integer nanoseconds.
type JsonConfig struct {
	ServerAddr                  string         `json:"server_addr"`
	StoreDriver                 string         `json:"store_driver"`
	DatabaseDSN                 string         `json:"database_dsn"`
	MongoURI                    string         `json:"mongo_uri"`
	MongoDatabase               string         `json:"mongo_database"`
	MessageKey                  string         `json:"message_key"`
	MessageKeySalt              string         `json:"message_key_salt"`
	SecretKey                   string         `json:"secret_key"`
	ResumeTokenValidityDuration timex.Duration `json:"resume_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	MaxLineBytes                int            `json:"max_line_bytes"`
	WriteTimeout                timex.Duration `json:"write_timeout"`
	FileStorage                 string         `json:"file_storage"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	MetricsAddr                 *string        `json:"metrics_addr"`
	HealthAddr                  *string        `json:"health_addr"`
	WSAddr                      string         `json:"ws_addr"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Only keys
// present with a non-zero value override; the side listener addresses may be
// set to "" explicitly to disable them. Unreadable or invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.ServerAddr, c.ServerAddr)
	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.MessageKey, c.MessageKey)
	setString(&config.MessageKeySalt, c.MessageKeySalt)
	setString(&config.SecretKey, c.SecretKey)
	if c.ResumeTokenValidityDuration.Duration != 0 {
		config.ResumeTokenValidityDuration = c.ResumeTokenValidityDuration.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.MaxLineBytes != 0 {
		config.MaxLineBytes = c.MaxLineBytes
	}
	if c.WriteTimeout.Duration != 0 {
		config.WriteTimeout = c.WriteTimeout.Duration
	}
	setString(&config.FileStorage, c.FileStorage)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
	if c.HealthAddr != nil {
		config.HealthAddr = *c.HealthAddr
	}
	setString(&config.WSAddr, c.WSAddr)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
