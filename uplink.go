package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
)

// ErrTxDisabled is returned when an uplink attempt is made while the
// station-wide tx_disabled flag is set.
var ErrTxDisabled = fmt.Errorf("uplink: transmit disabled by station config")

// ErrNoResponse is returned when an uplink exhausts its repeat budget
// without observing the expected response.
var ErrNoResponse = fmt.Errorf("uplink: no response observed")

// minCatalogVersion is the oldest uplink-catalog protocol version this
// binary knows how to speak; a catalog below this is refused rather than
// armed with possibly-stale command bytes.
var minCatalogVersion = version.Must(version.NewVersion("1.0.0"))

// LoadUplinkCatalog reads the external CSV command catalog (SPEC_FULL.md
// §6): one row per command, columns name,command_hex,response_ascii. A
// header row beginning with "protocol_version" is checked against
// minCatalogVersion and then skipped. Grounded on
// original_source/groundstation/transmit.py's loadUplinkCommands.
func LoadUplinkCatalog(path string) (map[string]UplinkCommand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load uplink catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load uplink catalog: parse %s: %w", path, err)
	}

	catalog := make(map[string]UplinkCommand)
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		if len(rec) == 2 && rec[0] == "protocol_version" {
			v, err := version.NewVersion(rec[1])
			if err != nil {
				return nil, fmt.Errorf("load uplink catalog: bad protocol_version %q: %w", rec[1], err)
			}
			if v.LessThan(minCatalogVersion) {
				return nil, fmt.Errorf("load uplink catalog: protocol_version %s older than minimum %s", v, minCatalogVersion)
			}
			continue
		}
		if len(rec) < 3 {
			continue
		}
		name, cmdHex, respASCII := rec[0], rec[1], rec[2]
		cmdBytes, err := HexText(cmdHex).ToBytes()
		if err != nil {
			return nil, fmt.Errorf("load uplink catalog: row %q: bad command hex: %w", name, err)
		}
		catalog[name] = UplinkCommand{
			Name:                  name,
			CommandBytes:          cmdBytes,
			ExpectedResponseBytes: Bytes(respASCII),
			ResponseLen:           responseLen,
		}
	}
	return catalog, nil
}

// UplinkTransmitter owns the repeated-write/listen-window transmit loop
// over a shared serial port. Grounded on
// original_source/groundstation/transmit.py's Uplink.send, with the
// retry/attempt-counting idiom adapted from rotctl.go's retryCommand.
type UplinkTransmitter struct {
	port       SerialPort
	txDisabled func() bool
}

func NewUplinkTransmitter(port SerialPort, txDisabled func() bool) *UplinkTransmitter {
	return &UplinkTransmitter{port: port, txDisabled: txDisabled}
}

// Send writes cmd.CommandBytes repeated cmdRepeats times, up to txRepeats
// attempts, until the expected response is observed in an attempt's
// read-back. Returns every byte read across all attempts, on success and on
// failure, for diagnostics/rx_buf folding.
func (u *UplinkTransmitter) Send(cmd UplinkCommand) (bool, Bytes, error) {
	if u.txDisabled != nil && u.txDisabled() {
		return false, nil, ErrTxDisabled
	}

	attemptID := uuid.New().String()
	var allRead Bytes
	for attempt := 0; attempt < txRepeats; attempt++ {
		for i := 0; i < cmdRepeats; i++ {
			if _, err := u.port.Write(cmd.CommandBytes); err != nil {
				return false, allRead, fmt.Errorf("uplink %s (attempt %s): write: %w", cmd.Name, attemptID, err)
			}
		}
		if err := u.port.Flush(); err != nil {
			return false, allRead, fmt.Errorf("uplink %s (attempt %s): flush: %w", cmd.Name, attemptID, err)
		}

		var readBuf Bytes
		deadline := time.Now().Add(txResponseTimeoutS)
		for time.Now().Before(deadline) {
			n, err := u.port.BytesAvailable()
			if err != nil {
				return false, allRead, fmt.Errorf("uplink %s (attempt %s): poll: %w", cmd.Name, attemptID, err)
			}
			if n > 0 {
				chunk, err := u.port.Read(n)
				if err != nil {
					return false, allRead, fmt.Errorf("uplink %s (attempt %s): read: %w", cmd.Name, attemptID, err)
				}
				readBuf = append(readBuf, chunk...)
				allRead = append(allRead, chunk...)
			}
		}

		if bytes.Contains(readBuf, cmd.ExpectedResponseBytes) {
			return true, allRead, nil
		}
	}

	log.Printf("uplink %s (attempt %s): no response after %d attempts", cmd.Name, attemptID, txRepeats)
	return false, allRead, ErrNoResponse
}

// SendPostPacket is the post-packet-mode variant (SPEC_FULL.md §4.6): after
// waiting out the satellite's idle/low-power window, it repeats
// cmd.CommandBytes for a bounded postPacketTxWindow, then listens for the
// expected response for postPacketListenWindow before giving up. This is
// deliberately a tighter, separate loop from Send's general-purpose
// txRepeats/cmdRepeats retry budget (several seconds): the satellite's
// receive window here is only open for ~0.7-1.0s after a downlink packet,
// so the transmit and listen phases must stay within their own fixed
// windows rather than the open-ended repeat/poll loop Send uses. Grounded
// on original_source/groundstation/transmit.py's post-packet send timing.
func (u *UplinkTransmitter) SendPostPacket(cmd UplinkCommand, lowPowerMode bool) (bool, Bytes, error) {
	if u.txDisabled != nil && u.txDisabled() {
		return false, nil, ErrTxDisabled
	}

	idle := postPacketIdleWindow
	if lowPowerMode {
		idle = postPacketLowPowerWindow
	}
	time.Sleep(idle)

	txDeadline := time.Now().Add(postPacketTxWindow)
	for time.Now().Before(txDeadline) {
		if _, err := u.port.Write(cmd.CommandBytes); err != nil {
			return false, nil, fmt.Errorf("uplink %s post-packet: write: %w", cmd.Name, err)
		}
	}
	if err := u.port.Flush(); err != nil {
		return false, nil, fmt.Errorf("uplink %s post-packet: flush: %w", cmd.Name, err)
	}

	var readBuf Bytes
	listenDeadline := time.Now().Add(postPacketListenWindow)
	for time.Now().Before(listenDeadline) {
		n, err := u.port.BytesAvailable()
		if err != nil {
			return false, readBuf, fmt.Errorf("uplink %s post-packet: poll: %w", cmd.Name, err)
		}
		if n > 0 {
			chunk, err := u.port.Read(n)
			if err != nil {
				return false, readBuf, fmt.Errorf("uplink %s post-packet: read: %w", cmd.Name, err)
			}
			readBuf = append(readBuf, chunk...)
		}
		if idx := bytes.Index(readBuf, cmd.ExpectedResponseBytes); idx != -1 {
			end := idx + responseLen
			if end > len(readBuf) {
				end = len(readBuf)
			}
			return true, readBuf[idx:end], nil
		}
	}

	return false, readBuf, ErrNoResponse
}
