package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
serial:
  test_mode: true
station:
  name: W1AW-GS
  lat: 41.7
  lon: -72.7
uplink:
  catalog_csv: commands.csv
`

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 38400, cfg.Serial.Baud)
	assert.Equal(t, uint32(radioBaseFreqHz), cfg.Radio.BaseFreqHz)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
	assert.Equal(t, "rx_data.log", cfg.RxDump.Path)
	assert.Equal(t, int64(10<<20), cfg.RxDump.RotateBytes)
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestValidateRequiresSerialPortUnlessTestMode(t *testing.T) {
	cfg := Config{Station: StationConfig{Name: "X", Lat: 0, Lon: 0}, Uplink: UplinkConfig{CatalogCSV: "c.csv"}}
	assert.Error(t, cfg.Validate())

	cfg.Serial.TestMode = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeLatLon(t *testing.T) {
	cfg := Config{
		Serial:  SerialConfig{TestMode: true},
		Station: StationConfig{Name: "X", Lat: 95, Lon: 0},
		Uplink:  UplinkConfig{CatalogCSV: "c.csv"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Station.Lat = 0
	cfg.Station.Lon = 200
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresMQTTBrokerWhenEnabled(t *testing.T) {
	cfg := Config{
		Serial:  SerialConfig{TestMode: true},
		Station: StationConfig{Name: "X"},
		Uplink:  UplinkConfig{CatalogCSV: "c.csv"},
		MQTT:    MQTTConfig{Enabled: true},
	}
	assert.Error(t, cfg.Validate())

	cfg.MQTT.Broker = "tcp://localhost:1883"
	assert.NoError(t, cfg.Validate())
}
