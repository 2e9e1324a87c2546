// Package config loads runtime configuration for the gophchat terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the chat server
//	-t int      dial timeout (seconds)
//	-d string   directory downloaded files are written to
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:12345",
//	  "dial_timeout": "5s",
//	  "download_dir": "downloads"
//	}
package config
