// Package config loads the daemon's YAML configuration into typed,
// defaulted, validated structs — the pointer-field/SetDefaults/Validate
// shape the teacher's checkpoint config uses, generalized to the whole
// daemon.
package config

import (
	"fmt"

	"github.com/kadirpekel/ccswarmd/pkg/autoaccept"
	"github.com/kadirpekel/ccswarmd/pkg/checkpoint"
)

// Config is the top-level daemon configuration.
//
// Example YAML configuration:
//
//	log:
//	  level: info
//	  format: text
//	ipc:
//	  socket_path: ${XDG_RUNTIME_DIR:-/tmp}/ccswarmd.sock
//	bus:
//	  history_limit: 256
//	checkpoint:
//	  base_dir: /home/user/.ccswarm/checkpoints
//	autoaccept:
//	  profile: standard
//	  host_rate_limit_per_minute: 60
//	tracing:
//	  max_traces: 1000
//	  otel: false
//	  prometheus: true
type Config struct {
	Log        LogConfig         `yaml:"log,omitempty"`
	IPC        IPCConfig         `yaml:"ipc,omitempty"`
	Bus        BusConfig         `yaml:"bus,omitempty"`
	Checkpoint checkpoint.Config `yaml:"checkpoint,omitempty"`
	AutoAccept AutoAcceptConfig  `yaml:"autoaccept,omitempty"`
	Tracing    TracingConfig     `yaml:"tracing,omitempty"`
}

// LogConfig configures the daemon's slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level,omitempty"`
	// Format is one of text, json.
	// Default: text
	Format string `yaml:"format,omitempty"`
	// File, if set, is written to in addition to stderr.
	File string `yaml:"file,omitempty"`
}

// IPCConfig configures the Unix-socket front door.
type IPCConfig struct {
	// SocketPath overrides the default ${XDG_RUNTIME_DIR:-/tmp}/ccswarmd.sock.
	SocketPath string `yaml:"socket_path,omitempty"`
}

// BusConfig configures the coordination bus.
type BusConfig struct {
	// HistoryLimit caps retained send history. 0 disables retention.
	// Default: 256
	HistoryLimit *int `yaml:"history_limit,omitempty"`
}

// AutoAcceptConfig configures the auto-accept gate.
type AutoAcceptConfig struct {
	// Profile pre-seeds the FS/command policy sets: unrestricted,
	// standard, restricted, paranoid.
	// Default: standard
	Profile string `yaml:"profile,omitempty"`
	// Workdir scopes Restricted/Paranoid's file allow-list.
	Workdir string `yaml:"workdir,omitempty"`
	// HostRateLimitPerMinute caps outbound network actions per host.
	// Default: 60
	HostRateLimitPerMinute *int64 `yaml:"host_rate_limit_per_minute,omitempty"`
}

// TracingConfig configures the trace collector and its optional
// OpenTelemetry/Prometheus mirroring.
type TracingConfig struct {
	// MaxTraces caps retained completed traces.
	// Default: 1000
	MaxTraces *int `yaml:"max_traces,omitempty"`
	// OTel enables mirroring spans to an OpenTelemetry TracerProvider.
	// Default: false
	OTel *bool `yaml:"otel,omitempty"`
	// Prometheus enables the active/completed trace gauges and span
	// duration summary.
	// Default: true
	Prometheus *bool `yaml:"prometheus,omitempty"`
}

// SetDefaults applies default values to every unset field.
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Bus.HistoryLimit == nil {
		limit := 256
		c.Bus.HistoryLimit = &limit
	}

	if c.AutoAccept.Profile == "" {
		c.AutoAccept.Profile = string(autoaccept.ProfileStandard)
	}
	if c.AutoAccept.HostRateLimitPerMinute == nil {
		limit := int64(60)
		c.AutoAccept.HostRateLimitPerMinute = &limit
	}

	if c.Tracing.MaxTraces == nil {
		maxTraces := 1000
		c.Tracing.MaxTraces = &maxTraces
	}
	if c.Tracing.OTel == nil {
		otel := false
		c.Tracing.OTel = &otel
	}
	if c.Tracing.Prometheus == nil {
		prom := true
		c.Tracing.Prometheus = &prom
	}

	c.Checkpoint.SetDefaults()
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (valid: text, json)", c.Log.Format)
	}

	if c.Bus.HistoryLimit != nil && *c.Bus.HistoryLimit < 0 {
		return fmt.Errorf("bus history_limit must be non-negative")
	}

	switch autoaccept.Profile(c.AutoAccept.Profile) {
	case "", autoaccept.ProfileUnrestricted, autoaccept.ProfileStandard,
		autoaccept.ProfileRestricted, autoaccept.ProfileParanoid:
	default:
		return fmt.Errorf("invalid autoaccept profile %q (valid: unrestricted, standard, restricted, paranoid)", c.AutoAccept.Profile)
	}
	if c.AutoAccept.HostRateLimitPerMinute != nil && *c.AutoAccept.HostRateLimitPerMinute < 0 {
		return fmt.Errorf("autoaccept host_rate_limit_per_minute must be non-negative")
	}

	if c.Tracing.MaxTraces != nil && *c.Tracing.MaxTraces < 0 {
		return fmt.Errorf("tracing max_traces must be non-negative")
	}

	if err := c.Checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint config: %w", err)
	}

	return nil
}

// BusHistoryLimit returns the configured history limit.
func (c *Config) BusHistoryLimit() int {
	if c.Bus.HistoryLimit == nil {
		return 256
	}
	return *c.Bus.HistoryLimit
}

// AutoAcceptProfile returns the configured profile.
func (c *Config) AutoAcceptProfile() autoaccept.Profile {
	if c.AutoAccept.Profile == "" {
		return autoaccept.ProfileStandard
	}
	return autoaccept.Profile(c.AutoAccept.Profile)
}

// HostRateLimitPerMinute returns the configured per-host rate limit.
func (c *Config) HostRateLimitPerMinute() int64 {
	if c.AutoAccept.HostRateLimitPerMinute == nil {
		return 60
	}
	return *c.AutoAccept.HostRateLimitPerMinute
}

// TracingMaxTraces returns the configured retention cap.
func (c *Config) TracingMaxTraces() int {
	if c.Tracing.MaxTraces == nil {
		return 1000
	}
	return *c.Tracing.MaxTraces
}

// TracingOTelEnabled reports whether OTel mirroring is enabled.
func (c *Config) TracingOTelEnabled() bool {
	return c.Tracing.OTel != nil && *c.Tracing.OTel
}

// TracingPrometheusEnabled reports whether Prometheus mirroring is enabled.
func (c *Config) TracingPrometheusEnabled() bool {
	return c.Tracing.Prometheus == nil || *c.Tracing.Prometheus
}
