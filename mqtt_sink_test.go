package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Connecting MQTTPacketSink itself requires a live broker, so only its
// pure helpers are covered here; see DESIGN.md for the rationale.

func TestGenerateMQTTClientIDHasPrefixAndIsUnique(t *testing.T) {
	a := generateMQTTClientID("gs-")
	b := generateMQTTClientID("gs-")
	assert.Contains(t, a, "gs-")
	assert.NotEqual(t, a, b)
}

func TestLoadMQTTTLSConfigDisabledReturnsNil(t *testing.T) {
	cfg, err := loadMQTTTLSConfig(MQTTTLSConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadMQTTTLSConfigMissingCACertErrors(t *testing.T) {
	_, err := loadMQTTTLSConfig(MQTTTLSConfig{Enabled: true, CACert: "/no/such/file.pem"})
	assert.Error(t, err)
}
