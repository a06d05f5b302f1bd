package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meigma/lica"
)

// Environment variables read at startup. A .env file in the working
// directory is loaded first and never overrides variables already set.
const (
	envLogLevel         = "LICA_LOG_LEVEL"
	envStream           = "LICA_STREAM"
	envDisableStreaming = "LICA_DISABLE_STREAMING"
	envProgressInterval = "LICA_PROGRESS_INTERVAL"
)

// config holds defaults resolved from the environment. Flags override them.
type config struct {
	logLevel         slog.Level
	stream           bool
	disableStreaming bool
	progressInterval int
}

func defaultConfig() config {
	return config{
		logLevel:         slog.LevelInfo,
		progressInterval: lica.DefaultProgressInterval,
	}
}

// loadConfig reads configuration through lookup, normally os.LookupEnv.
func loadConfig(lookup func(string) (string, bool)) (config, error) {
	cfg := defaultConfig()

	if v, ok := lookup(envLogLevel); ok && v != "" {
		if err := cfg.logLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%s: %w", envLogLevel, err)
		}
	}
	if v, ok := lookup(envStream); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envStream, err)
		}
		cfg.stream = b
	}
	if v, ok := lookup(envDisableStreaming); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envDisableStreaming, err)
		}
		cfg.disableStreaming = b
	}
	if v, ok := lookup(envProgressInterval); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envProgressInterval, err)
		}
		cfg.progressInterval = n
	}
	return cfg, nil
}

// capabilities resolves the unpacker capabilities once for the process.
func (c config) capabilities() lica.Capabilities {
	caps := lica.DetectCapabilities()
	if c.disableStreaming {
		caps.StreamingJSON = false
	}
	return caps
}
