package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPacketSinkRingBuffer(t *testing.T) {
	sink := NewLocalPacketSink(2)
	require.NoError(t, sink.Publish(DecodedPacket{RawHex: "a"}))
	require.NoError(t, sink.Publish(DecodedPacket{RawHex: "b"}))
	require.NoError(t, sink.Publish(DecodedPacket{RawHex: "c"}))

	recent := sink.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, HexText("b"), recent[0].RawHex)
	assert.Equal(t, HexText("c"), recent[1].RawHex)
}

func TestMultiPacketSinkFansOutAndReportsFirstError(t *testing.T) {
	sinkA := NewLocalPacketSink(4)
	failing := &failingSink{err: errors.New("boom")}
	multi := NewMultiPacketSink(sinkA, failing)

	err := multi.Publish(DecodedPacket{RawHex: "x"})
	assert.ErrorIs(t, err, failing.err)
	assert.Len(t, sinkA.Recent(), 1)
}

type failingSink struct{ err error }

func (f *failingSink) Publish(DecodedPacket) error { return f.err }
