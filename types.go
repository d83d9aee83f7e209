package main

import (
	"encoding/hex"
	"strings"
	"time"
)

// Bytes and HexText are kept distinct so a raw wire buffer and its
// hex-text receive-buffer representation can never be silently confused,
// replacing the source's dynamically-typed "sometimes bytes, sometimes
// hex string" buffers (SPEC_FULL.md §9).
type Bytes []byte

// HexText is produced in lowercase by BytesToHex and normalizeHex. ToBytes
// fails on non-hex characters or an odd length; it accepts either case.
type HexText string

func (h HexText) ToBytes() (Bytes, error) {
	b, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, err
	}
	return Bytes(b), nil
}

func BytesToHex(b Bytes) HexText {
	return HexText(hex.EncodeToString(b))
}

func normalizeHex(s string) HexText {
	return HexText(strings.ToLower(s))
}

// RawPacket is a single extracted, not-yet-decoded downlink frame.
type RawPacket struct {
	Offset int
	Hex    HexText // exactly packetLenHex characters, callsign-prefixed
}

// DecodedPacket is what reaches the PacketSink.
type DecodedPacket struct {
	RawHex          HexText
	CorrectedHex    HexText
	Parsed          Bytes // 211-byte corrected payload, callsign stripped
	ErrorsCorrected bool
	Err             error
}

// ChannelRecord is one programmable radio channel slot.
type ChannelRecord struct {
	RxFreqHz   uint32
	TxFreqHz   uint32
	BandwidthHz uint32
}

// ChannelTable is the station's view of the radio's 1..N channel memory.
type ChannelTable struct {
	channels map[int]ChannelRecord
}

func NewChannelTable() *ChannelTable {
	return &ChannelTable{channels: make(map[int]ChannelRecord)}
}

func (t *ChannelTable) Set(n int, rec ChannelRecord) {
	t.channels[n] = rec
}

func (t *ChannelTable) Get(n int) (ChannelRecord, bool) {
	rec, ok := t.channels[n]
	return rec, ok
}

// UplinkCommand is one named entry in the uplink command catalog.
type UplinkCommand struct {
	Name                  string
	CommandBytes          Bytes
	ExpectedResponseBytes Bytes
	ResponseLen           int
}

// TxQueueItem wraps a queued uplink with the immediate-continuous flag.
type TxQueueItem struct {
	Command   UplinkCommand
	Immediate bool
}

// PassData is the set of pass-geometry facts the scheduler needs;
// produced by an external PassPredictor.
type PassData struct {
	RiseTime          time.Time
	RiseAz            float64
	MaxAltTime        time.Time
	MaxAltDeg         float64
	SetTime           time.Time
	SetAz             float64
	RiseDopplerFactor float64
	SetDopplerFactor  float64
}

// DopplerCorrection is one scheduled channel activation.
type DopplerCorrection struct {
	ActivationTime time.Time
	ChannelIndex   int
}

// DopplerSchedule is a time-ordered, nondecreasing list of corrections.
type DopplerSchedule []DopplerCorrection
