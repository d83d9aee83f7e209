package main

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// ConnectionState mirrors the supervisory-state idea in the teacher's
// RotctlClient/RotatorController: a caller should be able to ask "how
// confident are we that the radio is actually listening" rather than
// assume every command silently succeeds.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateDataMode
	StateCommandMode
)

func (s ConnectionState) String() string {
	switch s {
	case StateDataMode:
		return "data-mode"
	case StateCommandMode:
		return "command-mode"
	default:
		return "disconnected"
	}
}

// RadioController is the session-level state machine over RadioCodec:
// command-mode entry/exit, channel programming, bounded-retry exchanges.
// Grounded on rotctl.go's RotctlClient (sendCommandWithRetry, checkResponse)
// and RotatorController (state tracking, retryCommand), generalized from a
// Hamlib rotctld TCP session to the XDL-Micro checksummed serial protocol.
type RadioController struct {
	mu      sync.Mutex
	port    SerialPort
	channels *ChannelTable
	state   ConnectionState
}

func NewRadioController(port SerialPort) *RadioController {
	return &RadioController{
		port:     port,
		channels: NewChannelTable(),
		state:    StateDisconnected,
	}
}

func (c *RadioController) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnterCommandMode writes the "+++" escape sequence with silence guards
// before/after, optionally followed by a dealer-mode frame whose 1-byte
// status response must be 0x00.
func (c *RadioController) EnterCommandMode(dealer bool) (bool, Bytes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	time.Sleep(commandModeGuardDelay)
	if _, err := c.port.Write(Bytes("+++")); err != nil {
		return false, nil, fmt.Errorf("enter command mode: write escape: %w", err)
	}
	time.Sleep(commandModeGuardDelay)

	if !dealer {
		c.state = StateCommandMode
		return true, nil, nil
	}

	ok, readBack, err := c.sendCommandLocked(opDealerMode, Bytes{0x01}, 1)
	if err != nil {
		return false, readBack, err
	}
	if !ok {
		return false, readBack, nil
	}
	status, found := byte(0), false
	for i, b := range readBack {
		if b != soh {
			continue
		}
		if matched, args := ParseResponse(readBack[i:], responseTagFor[opDealerMode], 1); matched {
			status, found = args[0], true
		}
	}
	if !found || status != 0x00 {
		log.Printf("radio: dealer mode status byte %#x, expected 0x00", status)
		return false, readBack, nil
	}
	c.state = StateCommandMode
	return true, readBack, nil
}

// ExitCommandMode sends a warm-reset frame and validates the status reply.
func (c *RadioController) ExitCommandMode() (bool, Bytes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, readBack, err := c.sendCommandLocked(opWarmReset, Bytes{0x01}, 1)
	if ok {
		c.state = StateDataMode
	}
	return ok, readBack, err
}

// ProgramSettings commits the current channel table to nonvolatile memory.
func (c *RadioController) ProgramSettings() (bool, Bytes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCommandLocked(opProgram, nil, 1)
}

func (c *RadioController) SetChannel(n int) (bool, Bytes, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCommandLocked(opSetChannel, Bytes{byte(n)}, 1)
}

func (c *RadioController) SetRxFreq(n int, hz uint32) (bool, Bytes, error) {
	if hz%radioFreqStepHz != 0 {
		return false, nil, fmt.Errorf("set rx freq: %d Hz is not a multiple of %d Hz", hz, radioFreqStepHz)
	}
	args := freqArgs(n, hz)
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, readBack, err := c.sendCommandLocked(opSetRxFreq, args, 1)
	if ok {
		rec, _ := c.channels.Get(n)
		rec.RxFreqHz = hz
		c.channels.Set(n, rec)
	}
	return ok, readBack, err
}

func (c *RadioController) SetTxFreq(n int, hz uint32) (bool, Bytes, error) {
	if hz%radioFreqStepHz != 0 {
		return false, nil, fmt.Errorf("set tx freq: %d Hz is not a multiple of %d Hz", hz, radioFreqStepHz)
	}
	args := freqArgs(n, hz)
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, readBack, err := c.sendCommandLocked(opSetTxFreq, args, 1)
	if ok {
		rec, _ := c.channels.Get(n)
		rec.TxFreqHz = hz
		c.channels.Set(n, rec)
	}
	return ok, readBack, err
}

func (c *RadioController) AddChannel(n int, rxHz, txHz, bwHz uint32) (bool, Bytes, error) {
	if rxHz%radioFreqStepHz != 0 || txHz%radioFreqStepHz != 0 {
		return false, nil, fmt.Errorf("add channel %d: frequencies must be multiples of %d Hz", n, radioFreqStepHz)
	}
	args := make([]byte, 0, 14)
	args = append(args, 0x00, byte(n))
	args = appendBE32(args, rxHz)
	args = appendBE32(args, txHz)
	args = appendBE32(args, bwHz)

	c.mu.Lock()
	defer c.mu.Unlock()
	ok, readBack, err := c.sendCommandLocked(opAddChannel, args, 1)
	if ok {
		c.channels.Set(n, ChannelRecord{RxFreqHz: rxHz, TxFreqHz: txHz, BandwidthHz: bwHz})
	}
	return ok, readBack, err
}

func freqArgs(n int, hz uint32) Bytes {
	args := make([]byte, 0, 5)
	args = append(args, byte(n))
	args = appendBE32(args, hz)
	return args
}

func appendBE32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// sendCommandLocked builds a frame for opcode/args, writes it, then polls
// the serial port for up to radioCmdTimeout for a matching response; on
// mismatch it retries up to defaultRetries times with defaultRetryDelay
// between attempts. All bytes read back (matched or not) are returned so
// the caller can fold stray RX data into the receive buffer. Must be
// called with c.mu held.
func (c *RadioController) sendCommandLocked(opcode byte, args Bytes, responseArgLen int) (bool, Bytes, error) {
	frame := Build(opcode, args)
	expectedTag, ok := responseTagFor[opcode]
	if !ok {
		return false, nil, fmt.Errorf("send command: no response tag known for opcode %#x", opcode)
	}

	var allRead Bytes
	for attempt := 0; attempt < defaultRetries; attempt++ {
		if _, err := c.port.Write(frame); err != nil {
			return false, allRead, fmt.Errorf("send command %#x: write: %w", opcode, err)
		}

		deadline := time.Now().Add(radioCmdTimeout)
		var respBuf Bytes
		for time.Now().Before(deadline) {
			n, err := c.port.BytesAvailable()
			if err != nil {
				return false, allRead, fmt.Errorf("send command %#x: poll: %w", opcode, err)
			}
			if n > 0 {
				chunk, err := c.port.Read(n)
				if err != nil {
					return false, allRead, fmt.Errorf("send command %#x: read: %w", opcode, err)
				}
				respBuf = append(respBuf, chunk...)
				allRead = append(allRead, chunk...)
				if matched, _ := ParseResponse(respBuf, expectedTag, responseArgLen); matched {
					return true, allRead, nil
				}
			}
			time.Sleep(radioPollInterval)
		}

		if attempt < defaultRetries-1 {
			time.Sleep(defaultRetryDelay)
		}
	}
	log.Printf("radio: command %#x failed after %d attempts", opcode, defaultRetries)
	return false, allRead, nil
}
