// Package config parses the proxy's CLI invocation and the small set
// of environment-sourced logging overrides.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// Version is the proxy's reported version for --version.
const Version = "0.1.0"

// listenAddr is fixed and not configurable, per the CLI contract.
const listenAddr = "0.0.0.0:3000"

// LoggerConfig holds the environment-sourced logging overrides.
type LoggerConfig struct {
	Level  string
	Format string
}

// ProxyConfig is the fully resolved configuration for one proxy run.
type ProxyConfig struct {
	SpecPath     string
	UpstreamBase *url.URL
	ListenAddr   string
	Logger       LoggerConfig
}

// ParseArgs parses args (typically os.Args[1:]). showVersion is true
// when the caller should print Version and exit 0 without starting
// anything; in that case cfg and err are both nil. Any other error
// (missing subcommand, malformed upstream URL) should be treated as
// exit code 1 by the caller.
func ParseArgs(args []string) (cfg *ProxyConfig, showVersion bool, err error) {
	if len(args) >= 1 && args[0] == "--version" {
		return nil, true, nil
	}

	if len(args) != 3 || args[0] != "proxy" {
		return nil, false, fmt.Errorf("usage: proxy <openapi-file> <upstream-url>")
	}

	specPath := args[1]
	upstreamBase, err := url.Parse(args[2])
	if err != nil {
		return nil, false, fmt.Errorf("invalid upstream url %q: %w", args[2], err)
	}

	return &ProxyConfig{
		SpecPath:     specPath,
		UpstreamBase: upstreamBase,
		ListenAddr:   listenAddr,
		Logger:       loadLoggerConfig(),
	}, false, nil
}

// loadLoggerConfig loads an optional .env file on a best-effort basis
// (a missing file is not an error) and reads the OVP_LOG_LEVEL and
// OVP_LOG_FORMAT overrides, defaulting to info/json.
func loadLoggerConfig() LoggerConfig {
	_ = godotenv.Load()

	return LoggerConfig{
		Level:  getEnv("OVP_LOG_LEVEL", "info"),
		Format: getEnv("OVP_LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
