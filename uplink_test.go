package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUplinkSendSuccess is scenario S7 (success case) from SPEC_FULL.md §8:
// a mock serial port answers "ECHOCHOCO" after a few repetitions of the
// echo command.
func TestUplinkSendSuccess(t *testing.T) {
	port := NewMockSerialPort()
	cmd := UplinkCommand{
		Name:                  "echo_cmd",
		CommandBytes:          Bytes("ECHO?"),
		ExpectedResponseBytes: Bytes("ECHOCHOCO"),
		ResponseLen:           responseLen,
	}
	require.NoError(t, port.AddMatchRule("ECHO", Bytes("ECHOCHOCO")))

	tx := NewUplinkTransmitter(port, nil)
	ok, read, err := tx.Send(cmd)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(read), "ECHOCHOCO")
}

// TestUplinkSendFailureOnSilentLine is scenario S7 (failure case).
func TestUplinkSendFailureOnSilentLine(t *testing.T) {
	port := NewMockSerialPort()
	cmd := UplinkCommand{
		Name:                  "echo_cmd",
		CommandBytes:          Bytes("ECHO?"),
		ExpectedResponseBytes: Bytes("ECHOCHOCO"),
		ResponseLen:           responseLen,
	}

	tx := NewUplinkTransmitter(port, nil)
	ok, _, err := tx.Send(cmd)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestUplinkSendDisabled(t *testing.T) {
	port := NewMockSerialPort()
	cmd := UplinkCommand{Name: "echo_cmd", CommandBytes: Bytes("ECHO?"), ExpectedResponseBytes: Bytes("ECHOCHOCO"), ResponseLen: responseLen}

	tx := NewUplinkTransmitter(port, func() bool { return true })
	ok, _, err := tx.Send(cmd)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrTxDisabled)
	assert.Empty(t, port.WrittenBytes)
}

// TestSendPostPacketSuccess exercises the bounded post-packet transmit/listen
// windows (SPEC_FULL.md §4.6): a response queued by the mock port is
// observed within the listen window.
func TestSendPostPacketSuccess(t *testing.T) {
	port := NewMockSerialPort()
	cmd := UplinkCommand{Name: "echo_cmd", CommandBytes: Bytes("ECHO?"), ExpectedResponseBytes: Bytes("ECHOCHOCO"), ResponseLen: responseLen}
	require.NoError(t, port.AddMatchRule("ECHO", Bytes("ECHOCHOCO")))

	tx := NewUplinkTransmitter(port, nil)
	ok, read, err := tx.SendPostPacket(cmd, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(read), "ECHOCHOCO")
	assert.NotEmpty(t, port.WrittenBytes, "command bytes repeated within the bounded transmit window")
}

func TestSendPostPacketNoResponse(t *testing.T) {
	port := NewMockSerialPort()
	cmd := UplinkCommand{Name: "echo_cmd", CommandBytes: Bytes("ECHO?"), ExpectedResponseBytes: Bytes("ECHOCHOCO"), ResponseLen: responseLen}

	tx := NewUplinkTransmitter(port, nil)
	ok, _, err := tx.SendPostPacket(cmd, false)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSendPostPacketDisabled(t *testing.T) {
	port := NewMockSerialPort()
	cmd := UplinkCommand{Name: "echo_cmd", CommandBytes: Bytes("ECHO?"), ExpectedResponseBytes: Bytes("ECHOCHOCO"), ResponseLen: responseLen}

	tx := NewUplinkTransmitter(port, func() bool { return true })
	ok, _, err := tx.SendPostPacket(cmd, false)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrTxDisabled)
	assert.Empty(t, port.WrittenBytes)
}
