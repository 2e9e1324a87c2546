package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags reads -a, -t and -d. Other arguments are filtered out with
// flagx.FilterArgs so the JSON flags do not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the chat server")
	dialTimeout := fs.Int("t", int(cfg.DialTimeout.Seconds()), "dial timeout (in seconds)")
	fs.StringVar(&cfg.DownloadDir, "d", cfg.DownloadDir, "directory for downloaded files")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	visited := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			visited = true
		}
	})
	if visited {
		cfg.DialTimeout = time.Duration(*dialTimeout) * time.Second
	}
}
