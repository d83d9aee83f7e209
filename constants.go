package main

import "time"

// Protocol and timing constants carried over from the original groundstation
// firmware/software boundary (see SPEC_FULL.md §6, §9).
const (
	packetLenBytes = 255
	packetLenHex   = packetLenBytes * 2 // 510
	maxBufHex      = 4096

	// Frame layout resolution (the distilled spec quotes inconsistent byte
	// counts across §3/§4.5/§8; see DESIGN.md "RS frame layout" for the
	// reconciliation): a 255-byte frame is a 12-byte header (the 5-byte
	// callsign match tag plus 7 reserved/pass-through bytes) followed by a
	// 243-byte Reed-Solomon codeword (211 data bytes + 32 parity bytes).
	headerBytes    = 12
	rsCodewordLen  = packetLenBytes - headerBytes // 243
	rsParityBytes  = 32
	rsDataBytes    = rsCodewordLen - rsParityBytes // 211
	responseLen    = 9

	radioFreqStepHz = 6250
	radioBaseFreqHz = 435_550_000
	// callsignHex is the synchronization tag used to find frames in the
	// receive buffer: 5 ASCII bytes of "WL9XZE" ("574c39585a"), lowercase
	// per SPEC_FULL.md §9.4. The remaining 250 bytes of a 255-byte frame
	// hold the sixth callsign byte plus payload and RS parity together.
	callsignHex = "574c39585a"

	defaultRetries    = 5
	defaultRetryDelay = 400 * time.Millisecond
	radioCmdTimeout   = 2 * time.Second
	radioPollInterval = 250 * time.Millisecond

	commandModeGuardDelay = 120 * time.Millisecond

	cmdRepeats           = 15
	txRepeats            = 12
	txResponseTimeoutS   = 300 * time.Millisecond

	postPacketIdleWindow     = 450 * time.Millisecond
	postPacketLowPowerWindow = 900 * time.Millisecond
	postPacketTxWindow       = 700 * time.Millisecond
	postPacketListenWindow   = 1200 * time.Millisecond

	packetSendFreqS           = 20 * time.Second
	orbitalPeriodS            = 93 * 60 * time.Second
	periodicPacketScanFreqS   = 120 * time.Second
	dopplerFailRetryDelayS    = 72 * time.Second

	mainLoopTick = 500 * time.Millisecond
)
