// Package config loads a client's YAML configuration file: its node id,
// HTTP port, flood interval, and optional bridge transport settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFloodInterval is how often the flood subsystem initiates
// discovery absent an override.
const DefaultFloodInterval = 180 * time.Second

// DefaultRoutingErrorFloodWindow bounds how often a routing-error nack
// may trigger a re-flood.
const DefaultRoutingErrorFloodWindow = 5 * time.Second

// DefaultHistoryCapacity bounds the unacked-fragment history before the
// oldest entry is evicted.
const DefaultHistoryCapacity = 4096

// Config is the full configuration for one overlay-client instance.
type Config struct {
	NodeID   uint8  `yaml:"node_id"`
	HTTPPort int    `yaml:"http_port"`
	DBRoot   string `yaml:"db_root"`

	FloodInterval           time.Duration `yaml:"flood_interval"`
	RoutingErrorFloodWindow time.Duration `yaml:"routing_error_flood_window"`
	HistoryCapacity         int           `yaml:"history_capacity"`

	Manifest ManifestConfig `yaml:"manifest"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ManifestConfig points at the local content manifest and its JSON Schema.
type ManifestConfig struct {
	Path       string `yaml:"path"`
	SchemaPath string `yaml:"schema_path"`
	VideosDir  string `yaml:"videos_dir"`
}

// BridgeConfig configures the optional off-process transport bridge. When
// Transport is empty, neighbour channels are expected to be wired
// in-process instead (e.g. in tests or a simulated topology).
type BridgeConfig struct {
	Transport string       `yaml:"transport"` // "", "mqtt", or "serial"
	MQTT      MQTTConfig   `yaml:"mqtt"`
	Serial    SerialConfig `yaml:"serial"`
}

// MQTTConfig configures the MQTT bridge transport.
type MQTTConfig struct {
	BrokerURL   string `yaml:"broker_url"`
	ClientID    string `yaml:"client_id"`
	TopicRoot   string `yaml:"topic_root"`
	NeighbourID uint8  `yaml:"neighbour_id"`
}

// SerialConfig configures the serial bridge transport.
type SerialConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	NeighbourID uint8  `yaml:"neighbour_id"`
}

// LoggingConfig controls slog setup.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads and validates a YAML configuration file, filling defaults
// for any unset optional field.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort == 0 {
		c.HTTPPort = 8000 + int(c.NodeID)
	}
	if c.DBRoot == "" {
		c.DBRoot = "db/client_video"
	}
	if c.FloodInterval <= 0 {
		c.FloodInterval = DefaultFloodInterval
	}
	if c.RoutingErrorFloodWindow <= 0 {
		c.RoutingErrorFloodWindow = DefaultRoutingErrorFloodWindow
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.Manifest.Path == "" {
		c.Manifest.Path = "video_metadata.json"
	}
	if c.Manifest.VideosDir == "" {
		c.Manifest.VideosDir = "videos"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	switch c.Bridge.Transport {
	case "", "mqtt", "serial":
	default:
		return fmt.Errorf("bridge.transport must be one of \"\", \"mqtt\", \"serial\", got %q", c.Bridge.Transport)
	}
	if c.Bridge.Transport == "mqtt" && c.Bridge.MQTT.BrokerURL == "" {
		return fmt.Errorf("bridge.mqtt.broker_url is required when bridge.transport is \"mqtt\"")
	}
	if c.Bridge.Transport == "serial" && c.Bridge.Serial.Port == "" {
		return fmt.Errorf("bridge.serial.port is required when bridge.transport is \"serial\"")
	}
	return nil
}
