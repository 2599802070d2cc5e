// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvInput       = "SORTPERF_INPUT"
	EnvOutputDir   = "SORTPERF_OUTPUT_DIR"
	EnvThreads     = "SORTPERF_THREADS"
	EnvLogLevel    = "SORTPERF_LOG_LEVEL"
	EnvInfluxToken = "SORTPERF_INFLUX_TOKEN"
)

// ErrConfigExists is returned by WriteDefault when the file already exists.
var ErrConfigExists = errors.New("config file already exists")

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
}

// Validate checks the struct tags of every section.
func (c SortperfConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads path over DefaultConfig, applies SORTPERF_* overrides and
// validates the result.
//
// # Description
//
// A missing file is not an error: the defaults are used. Keys absent from
// the file keep their default values.
//
// # Outputs
//
//   - SortperfConfig: The merged configuration.
//   - bool: True when path existed and was read.
//   - error: Read, parse, override or validation failure.
func Load(path string) (SortperfConfig, bool, error) {
	cfg := DefaultConfig()
	found := false

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		found = true
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, found, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, found, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, found, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, found, err
	}
	return cfg, found, nil
}

// ApplyEnv copies set SORTPERF_* variables into cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *SortperfConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvInput); ok && v != "" {
		cfg.Input = v
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvThreads); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", EnvThreads, v)
		}
		cfg.Analysis.Threads = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvInfluxToken); ok && v != "" {
		cfg.Export.Influx.Token = v
	}
	return nil
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create the config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write the config file: %w", err)
	}
	return nil
}
