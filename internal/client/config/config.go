package config

import "time"

// Config holds runtime settings for the gophchat client.
type Config struct {
	ServerEndpointAddr string
	DialTimeout        time.Duration
	DownloadDir        string
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:12345"
	c.DialTimeout = 5 * time.Second
	c.DownloadDir = "."
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
