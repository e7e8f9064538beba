// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/firewatch/config.yaml",
	"/etc/firewatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load assembles the configuration from defaults, an optional YAML
// file, and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: built-in defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: config file, when present.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables, highest priority.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	// DEBUG=true is a shorthand the reference deployment used; it wins
	// over an explicit level.
	if debug := os.Getenv("DEBUG"); debug == "true" || debug == "1" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to config paths.
// Unknown variables are dropped so unrelated environment noise cannot
// leak into the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"firestore_credentials_file": "firestore.credentials_file",
		"firestore_project_id":       "firestore.project_id",

		"watch_collection":       "watch.collection",
		"watch_order_by":         "watch.order_by",
		"watch_descending":       "watch.descending",
		"watch_limit":            "watch.limit",
		"watch_poll_interval":    "watch.poll_interval",
		"watch_restart_cooldown": "watch.restart_cooldown",

		"dispatch_workers":       "dispatch.workers",
		"dispatch_task_timeout":  "dispatch.task_timeout",
		"dispatch_drain_timeout": "dispatch.drain_timeout",

		"sink_command":         "sink.command",
		"sink_args":            "sink.args",
		"sink_breaker_enabled": "sink.breaker_enabled",

		"metrics_enabled":     "metrics.enabled",
		"metrics_listen_addr": "metrics.listen_addr",

		"log_level":        "logging.level",
		"log_format":       "logging.format",
		"log_caller":       "logging.caller",
		"log_dir":          "logging.directory",
		"log_file_enabled": "logging.file_enabled",

		// Names kept from earlier revisions of the watcher.
		"collection_id": "watch.collection",
		"key_path":      "firestore.credentials_file",
		"max_workers":   "dispatch.workers",
	}

	return mappings[strings.ToLower(key)]
}

// sliceConfigPaths are the paths parsed as comma-separated slices when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"sink.args",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice when set from YAML or defaults.
		if _, ok := val.([]any); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("config path %s has unexpected type %T", path, val)
		}

		parts := strings.Split(str, ",")
		items := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		if err := k.Set(path, items); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}
