// Package config loads the TOML operational parameters a NetworkPeer
// needs at startup, following the teacher's LoadX/ValidateX shape.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// BackoffConfig controls the transport adapter's reconnect backoff.
// This lives outside the core (spec.md §4.8 treats transport as an
// external collaborator). It is read only by ws.NextBackoffDelay; the
// discovery driver does not use it and simply retries on its next tick.
type BackoffConfig struct {
	InitialDelayMS int     `toml:"initial_delay_ms"`
	Multiplier     float64 `toml:"multiplier"`
	MaxDelayMS     int     `toml:"max_delay_ms"`
	Jitter         bool    `toml:"jitter"`
}

// PeerConfig is every operational parameter spec.md §6 names, plus the
// transport-adapter timeouts a running reference transport needs.
type PeerConfig struct {
	HostName    string `toml:"host_name"`
	Port        int    `toml:"port"`
	ServiceName string `toml:"service_name"`

	DiscoverIntervalMS int     `toml:"discover_interval_ms"`
	MaxPeerTimeMS      int     `toml:"max_peer_time_ms"`
	SamplingRateHz     float64 `toml:"sampling_rate_hz"`

	ConnectTimeoutMS   int `toml:"connect_timeout_ms"`
	HandshakeTimeoutMS int `toml:"handshake_timeout_ms"`

	Backoff BackoffConfig `toml:"backoff"`
}

// DefaultPeerConfig returns the defaults spec.md §6 states as typical.
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		Port:               8001,
		ServiceName:        "peerclock",
		DiscoverIntervalMS: 500,
		MaxPeerTimeMS:      8000,
		SamplingRateHz:     44100,
		ConnectTimeoutMS:   5000,
		HandshakeTimeoutMS: 5000,
		Backoff: BackoffConfig{
			InitialDelayMS: 250,
			Multiplier:     2.0,
			MaxDelayMS:     5000,
			Jitter:         true,
		},
	}
}

// LoadPeerConfig reads and validates a PeerConfig from a TOML file at
// path, keeping the default for any field the file does not set. A
// field the file sets explicitly, even to zero, overrides its default.
func LoadPeerConfig(path string) (PeerConfig, error) {
	cfg := DefaultPeerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return PeerConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return PeerConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := ValidatePeerConfig(cfg); err != nil {
		return PeerConfig{}, err
	}
	return cfg, nil
}

// ValidatePeerConfig checks the invariants the core relies on.
func ValidatePeerConfig(cfg PeerConfig) error {
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return fmt.Errorf("peer config missing service_name")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("peer config port out of range: %d", cfg.Port)
	}
	if cfg.DiscoverIntervalMS <= 0 {
		return fmt.Errorf("peer config discover_interval_ms must be positive")
	}
	if cfg.MaxPeerTimeMS <= cfg.DiscoverIntervalMS {
		return fmt.Errorf("peer config max_peer_time_ms must exceed discover_interval_ms")
	}
	if cfg.SamplingRateHz <= 0 {
		return fmt.Errorf("peer config sampling_rate_hz must be positive")
	}
	return nil
}

// DiscoverInterval returns the discovery tick cadence as a Duration.
func (c PeerConfig) DiscoverInterval() time.Duration {
	return time.Duration(c.DiscoverIntervalMS) * time.Millisecond
}

// MaxPeerTime returns the prune threshold as a Duration.
func (c PeerConfig) MaxPeerTime() time.Duration {
	return time.Duration(c.MaxPeerTimeMS) * time.Millisecond
}
