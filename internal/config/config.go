// Firewatch - Firestore Change Watcher and Push Delivery
// Copyright 2026 luolongfei
// SPDX-License-Identifier: MIT
// https://github.com/luolongfei/firewatch

// Package config loads watcher configuration from layered sources:
// built-in defaults, an optional YAML file, and environment variables
// (highest priority).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the watcher process.
type Config struct {
	Firestore FirestoreConfig `koanf:"firestore"`
	Watch     WatchConfig     `koanf:"watch"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	Sink      SinkConfig      `koanf:"sink"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// FirestoreConfig identifies the watched project and its credentials.
type FirestoreConfig struct {
	// CredentialsFile is the path to a Google service-account JSON key.
	CredentialsFile string `koanf:"credentials_file" validate:"required,file"`

	// ProjectID overrides the project from the key file. Optional.
	ProjectID string `koanf:"project_id"`
}

// WatchConfig defines the watched query and session health policy.
type WatchConfig struct {
	// Collection is the watched collection id.
	Collection string `koanf:"collection" validate:"required"`

	// OrderBy is the update-timestamp field the query sorts on.
	OrderBy string `koanf:"order_by" validate:"required"`

	// Descending selects sort direction; the most recently updated
	// documents stay inside the query window when true.
	Descending bool `koanf:"descending"`

	// Limit is the number of documents in the watched window.
	Limit int `koanf:"limit" validate:"gte=1"`

	// PollInterval is the fallback health-check cadence.
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`

	// RestartCooldown is the pause after a successful session restart.
	RestartCooldown time.Duration `koanf:"restart_cooldown" validate:"gt=0"`
}

// DispatchConfig sizes the delivery worker pool.
type DispatchConfig struct {
	// Workers is the number of concurrent deliveries.
	Workers int `koanf:"workers" validate:"gte=1,lte=64"`

	// TaskTimeout bounds one delivery. Zero disables the bound.
	TaskTimeout time.Duration `koanf:"task_timeout" validate:"gte=0"`

	// DrainTimeout is how long shutdown waits for queued deliveries.
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gt=0"`
}

// SinkConfig describes the external delivery command.
type SinkConfig struct {
	// Command is the executable invoked once per new document.
	Command string `koanf:"command" validate:"required"`

	// Args are fixed arguments prepended before the payload.
	Args []string `koanf:"args"`

	// BreakerEnabled wraps the command in a circuit breaker.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr" validate:"required_if=Enabled true"`
}

// LoggingConfig mirrors logging.Config plus file output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`

	// Directory receives daily-rotated log files when FileEnabled.
	Directory   string `koanf:"directory"`
	FileEnabled bool   `koanf:"file_enabled"`
}

// defaultConfig returns the watcher's built-in defaults. These mirror
// the reference deployment: watch the single most recently updated
// document of the Message collection and push through one worker.
func defaultConfig() *Config {
	return &Config{
		Firestore: FirestoreConfig{
			CredentialsFile: "",
			ProjectID:       "",
		},
		Watch: WatchConfig{
			Collection:      "Message",
			OrderBy:         "updatedAt",
			Descending:      true,
			Limit:           1,
			PollInterval:    250 * time.Millisecond,
			RestartCooldown: time.Second,
		},
		Dispatch: DispatchConfig{
			Workers:      1,
			TaskTimeout:  0,
			DrainTimeout: 5 * time.Second,
		},
		Sink: SinkConfig{
			Command:        "php",
			Args:           []string{"artisan", "command:fcmpushformessage"},
			BreakerEnabled: false,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Caller:      false,
			Directory:   "logs",
			FileEnabled: true,
		},
	}
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			field := invalid[0]
			return fmt.Errorf("invalid configuration: field %s failed rule %q", field.Namespace(), field.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
