package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-t", "-k", "-f", "-l",
	"-u", "-p", "-b", "-g", "-e",
	"-store", "-mongo-uri", "-mongo-db", "-salt", "-bcrypt-cost",
	"-max-line", "-write-timeout", "-metrics", "-health", "-ws",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          listener address (e.g. ":12345")
//	-d string          SQL DSN
//	-s string          resume token HMAC secret
//	-t int             resume token validity, minutes
//	-k string          message key passphrase
//	-f string          file storage: inline or s3
//	-l string          log level
//	-u -p -b -g -e     S3 user, password, bucket, region, endpoint
//	-store string      store driver
//	-mongo-uri string  MongoDB URI
//	-mongo-db string   MongoDB database
//	-salt string       message key salt
//	-bcrypt-cost int   bcrypt cost
//	-max-line int      maximum protocol line, bytes
//	-write-timeout dur per-line write deadline
//	-metrics string    metrics listener ("" disables)
//	-health string     gRPC health listener ("" disables)
//	-ws string         WebSocket gateway listener ("" disables)
//
// os.Args is first filtered with flagx.FilterArgs so flags owned by other
// layers (-c, -env) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerAddr, "a", config.ServerAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	resumeTokenValidity := fs.Int("t", int(config.ResumeTokenValidityDuration.Minutes()), "resume_token_validity_duration (in minutes)")
	fs.StringVar(&config.MessageKey, "k", config.MessageKey, "message key passphrase")
	fs.StringVar(&config.FileStorage, "f", config.FileStorage, "file storage (inline|s3)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.StoreDriver, "store", config.StoreDriver, "store driver (memory|sqlite|postgres|mongo)")
	fs.StringVar(&config.MongoURI, "mongo-uri", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "mongo-db", config.MongoDatabase, "MongoDB database")
	fs.StringVar(&config.MessageKeySalt, "salt", config.MessageKeySalt, "message key salt")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.MaxLineBytes, "max-line", config.MaxLineBytes, "maximum protocol line size in bytes")
	fs.DurationVar(&config.WriteTimeout, "write-timeout", config.WriteTimeout, "write deadline per line")
	fs.StringVar(&config.MetricsAddr, "metrics", config.MetricsAddr, "metrics listen address")
	fs.StringVar(&config.HealthAddr, "health", config.HealthAddr, "gRPC health listen address")
	fs.StringVar(&config.WSAddr, "ws", config.WSAddr, "websocket gateway listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.ResumeTokenValidityDuration = time.Duration(*resumeTokenValidity) * time.Minute
		}
	})
}
