// Package config loads runtime configuration for the CodeX Notes client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or --config.
//  3. Command-line flags set explicitly, which override earlier values.
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "data_dir": "/home/me/.config/codexnotes",
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "bridge_addr": "",
//	  "reconciler": "lww"
//	}
//
// This package does not read environment variables.
package config
