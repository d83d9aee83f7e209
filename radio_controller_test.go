package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetRxFreqRejectsUnquantized is scenario S4 (first half) from
// SPEC_FULL.md §8: a frequency not a multiple of 6250 Hz is rejected
// without touching the serial port.
func TestSetRxFreqRejectsUnquantized(t *testing.T) {
	port := NewMockSerialPort()
	rc := NewRadioController(port)

	ok, _, err := rc.SetRxFreq(2, 435_550_001)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Empty(t, port.WrittenBytes)
}

// TestSetRxFreqAccepted is scenario S4 (second half): a quantized
// frequency is accepted and the channel table is updated once the radio
// answers.
func TestSetRxFreqAccepted(t *testing.T) {
	port := NewMockSerialPort()
	resp := Build(responseTagFor[opSetRxFreq], Bytes{0x00})
	require.NoError(t, port.AddMatchRule(`(?s).`, resp))

	rc := NewRadioController(port)
	ok, _, err := rc.SetRxFreq(2, 435_556_250)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, found := rc.channels.Get(2)
	require.True(t, found)
	assert.Equal(t, uint32(435_556_250), rec.RxFreqHz)
}

func TestSetRxFreqNoResponseExhaustsRetries(t *testing.T) {
	port := NewMockSerialPort()
	rc := NewRadioController(port)

	ok, _, err := rc.SetRxFreq(1, 435_550_000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnterCommandModeNonDealer(t *testing.T) {
	port := NewMockSerialPort()
	rc := NewRadioController(port)

	ok, _, err := rc.EnterCommandMode(false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateCommandMode, rc.State())
}
