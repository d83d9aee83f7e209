package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration value, YAML-loaded at startup.
// Grounded on config.go's Config/LoadConfig/Validate shape, trimmed to the
// sub-configs a groundstation controller actually needs.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Radio   RadioConfig   `yaml:"radio"`
	Station StationConfig `yaml:"station"`
	Uplink  UplinkConfig  `yaml:"uplink"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Metrics MetricsConfig `yaml:"metrics"`
	RxDump  RxDumpConfig  `yaml:"rx_dump"`
	Logging LoggingConfig `yaml:"logging"`
}

// SerialConfig selects the physical radio link, or a mock port fed from a
// replay input file for offline/test operation (mirrors the source's
// --serial_infile). There is no output-file setting; the mock keeps written
// bytes in memory.
type SerialConfig struct {
	Port         string `yaml:"port"`
	Baud         int    `yaml:"baud"`
	TestMode     bool   `yaml:"test_mode"`
	ReplayInFile string `yaml:"replay_in_file"`
}

// RadioConfig carries the channel plan and base-frequency settings.
type RadioConfig struct {
	BaseFreqHz   uint32 `yaml:"base_freq_hz"`
	PreconfigCSV string `yaml:"preconfig_csv"`
}

// StationConfig is the ground-station site and operator identity.
type StationConfig struct {
	Lat                  float64  `yaml:"lat"`
	Lon                  float64  `yaml:"lon"`
	AltMeters            float64  `yaml:"alt_meters"`
	Name                 string   `yaml:"name"`
	Secret               string   `yaml:"secret"`
	TXDisabled           bool     `yaml:"tx_disabled"`
	PacketEmailRecipients []string `yaml:"packet_email_recipients"`
}

// UplinkConfig points at the external command catalog.
type UplinkConfig struct {
	CatalogCSV      string `yaml:"catalog_csv"`
	ProtocolVersion string `yaml:"protocol_version"`
}

// MQTTConfig mirrors the teacher's MQTTConfig shape (broker/TLS/client-ID).
type MQTTConfig struct {
	Enabled      bool         `yaml:"enabled"`
	Broker       string       `yaml:"broker"`
	Username     string       `yaml:"username"`
	Password     string       `yaml:"password"`
	TopicPrefix  string       `yaml:"topic_prefix"`
	ClientPrefix string       `yaml:"client_prefix"`
	TLS          MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig mirrors the teacher's MQTTTLSConfig shape.
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// RxDumpConfig configures the raw-byte dump writer.
type RxDumpConfig struct {
	Path            string `yaml:"path"`
	RotateBytes     int64  `yaml:"rotate_bytes"`
	CompressRotated bool   `yaml:"compress_rotated"`
}

// LoggingConfig is the plain stdlib-log verbosity/format selector.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads and parses a YAML config file, then validates it.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load config: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config: parse %s: %w", filename, err)
	}

	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 38400
	}
	if cfg.Radio.BaseFreqHz == 0 {
		cfg.Radio.BaseFreqHz = radioBaseFreqHz
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.RxDump.Path == "" {
		cfg.RxDump.Path = "rx_data.log"
	}
	if cfg.RxDump.RotateBytes == 0 {
		cfg.RxDump.RotateBytes = 10 << 20
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate enforces the fields the station cannot safely start without,
// matching the source's _check_configs fail-fast-at-startup behavior.
func (c *Config) Validate() error {
	if !c.Serial.TestMode && c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required (or set serial.test_mode)")
	}
	if c.Station.Name == "" {
		return fmt.Errorf("station.name is required")
	}
	if c.Station.Lat < -90 || c.Station.Lat > 90 {
		return fmt.Errorf("station.lat must be within [-90, 90]")
	}
	if c.Station.Lon < -180 || c.Station.Lon > 180 {
		return fmt.Errorf("station.lon must be within [-180, 180]")
	}
	if c.Uplink.CatalogCSV == "" {
		return fmt.Errorf("uplink.catalog_csv is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
	}
	return nil
}
