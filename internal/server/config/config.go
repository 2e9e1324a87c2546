// Package config handles configuration for the chat server: defaults, a JSON
// overlay, environment variables (optionally from a dotenv file) and
// command-line flags, applied in that order.
package config

import "time"

// Config holds runtime settings for the gophchat server.
//
// Fields:
//   - ServerAddr: bind address of the line-protocol listener.
//   - StoreDriver: memory, sqlite, postgres or mongo.
//   - DatabaseDSN: SQL DSN for the sqlite/postgres drivers.
//   - MongoURI / MongoDatabase: connection settings for the mongo driver.
//   - MessageKey / MessageKeySalt: passphrase and salt the message encryption key is derived from.
//   - SecretKey: HMAC secret for resume tokens (HS256).
//   - FileStorage: inline keeps file ciphertext in the store, s3 offloads it.
//   - MetricsAddr / HealthAddr / WSAddr: optional side listeners; empty disables them.
type Config struct {
	ServerAddr                  string
	StoreDriver                 string
	DatabaseDSN                 string
	MongoURI                    string
	MongoDatabase               string
	MessageKey                  string
	MessageKeySalt              string
	SecretKey                   string
	ResumeTokenValidityDuration time.Duration
	BcryptCost                  int
	MaxLineBytes                int
	WriteTimeout                time.Duration
	FileStorage                 string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	MetricsAddr                 string
	HealthAddr                  string
	WSAddr                      string
	LogLevel                    string
}

const (
	FileStorageInline = "inline"
	FileStorageS3     = "s3"
)

// LoadDefaults populates Config with development defaults.
// NOTE: the keys below are insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.ServerAddr = ":12345"
	c.StoreDriver = "sqlite"
	c.DatabaseDSN = "file:data/gophchat.db?_pragma=busy_timeout(5000)"
	c.MongoURI = "mongodb://localhost:27017"
	c.MongoDatabase = "chatApp"
	c.MessageKey = "messageKey"
	c.MessageKeySalt = "gophchat"
	c.SecretKey = "secretKey"
	c.ResumeTokenValidityDuration = 24 * time.Hour
	c.BcryptCost = 10
	c.MaxLineBytes = 16 << 20
	c.WriteTimeout = 10 * time.Second
	c.FileStorage = FileStorageInline
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "gophchat"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.MetricsAddr = ":2112"
	c.HealthAddr = ":50051"
	c.WSAddr = ""
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, then the JSON file, then the
// environment, then command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
