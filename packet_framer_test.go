package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractAndTrim is scenario S1 from SPEC_FULL.md §8.
func TestExtractAndTrim(t *testing.T) {
	buf := HexText("aa" + callsignHex + strings.Repeat("45", 250) + "ff")
	require.Equal(t, 514, len(buf))

	f := NewPacketFramer()
	frames := f.Extract(buf)
	require.Len(t, frames, 1)
	assert.Equal(t, 2, frames[0].Offset)
	assert.Equal(t, packetLenHex, len(frames[0].Hex))

	trimmed := f.TrimAfterLast(buf, frames[0].Offset)
	assert.Equal(t, HexText("ff"), trimmed)
}

func TestExtractNonOverlappingIncreasingOffsets(t *testing.T) {
	one := callsignHex + strings.Repeat("00", (packetLenHex-len(callsignHex))/2)
	buf := HexText("zz" + one + one)

	f := NewPacketFramer()
	frames := f.Extract(buf)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Offset, frames[i-1].Offset)
	}
}

func TestCapBounds(t *testing.T) {
	f := NewPacketFramer()
	buf := HexText(strings.Repeat("ab", 5000))

	kept, dropped := f.Cap(buf, maxBufHex, packetLenHex)
	assert.LessOrEqual(t, len(kept), maxBufHex)
	want := packetLenHex
	if len(buf) < want {
		want = len(buf)
	}
	assert.GreaterOrEqual(t, len(kept), want)
	assert.Equal(t, len(buf), len(kept)+len(dropped))

	shortBuf := HexText("abcd")
	kept2, dropped2 := f.Cap(shortBuf, maxBufHex, packetLenHex)
	assert.Equal(t, shortBuf, kept2)
	assert.Empty(t, dropped2)
}
