package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PreconfigEntry is one row of the radio's Doppler-offset channel plan
// (spec.md §3 ChannelTable): a channel number and its RX/TX offset from the
// station's base frequency, expressed as a signed multiple of the radio's
// frequency step.
type PreconfigEntry struct {
	Channel        int
	OffsetMultiple int
}

// defaultPreconfigPlan is spec.md §3's channel table: channels 1-7 centered
// on the base frequency with Doppler offsets {0, +Δ, −Δ, +2Δ, −2Δ, +3Δ,
// −3Δ}.
var defaultPreconfigPlan = []PreconfigEntry{
	{Channel: 1, OffsetMultiple: 0},
	{Channel: 2, OffsetMultiple: 1},
	{Channel: 3, OffsetMultiple: -1},
	{Channel: 4, OffsetMultiple: 2},
	{Channel: 5, OffsetMultiple: -2},
	{Channel: 6, OffsetMultiple: 3},
	{Channel: 7, OffsetMultiple: -3},
}

// LoadPreconfigPlan reads channel,offset_multiple rows from path, falling
// back to defaultPreconfigPlan when path is empty. Grounded on uplink.go's
// LoadUplinkCatalog CSV-parsing idiom.
func LoadPreconfigPlan(path string) ([]PreconfigEntry, error) {
	if path == "" {
		return defaultPreconfigPlan, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load preconfig plan: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load preconfig plan: parse %s: %w", path, err)
	}

	var plan []PreconfigEntry
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		channel, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("load preconfig plan: bad channel %q: %w", rec[0], err)
		}
		offset, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("load preconfig plan: bad offset %q: %w", rec[1], err)
		}
		plan = append(plan, PreconfigEntry{Channel: channel, OffsetMultiple: offset})
	}
	return plan, nil
}

// PreconfigureChannels programs every channel in plan with an RX/TX
// frequency of baseHz + offset*radioFreqStepHz and commits them to
// nonvolatile memory, mirroring
// original_source/groundstation/groundstation.py's
// radio_preconfig_pass_freqs: enter dealer command mode, add each channel,
// program, exit.
func PreconfigureChannels(rc *RadioController, baseHz uint32, plan []PreconfigEntry) error {
	if ok, _, err := rc.EnterCommandMode(true); err != nil {
		return fmt.Errorf("radio preconfig: enter command mode: %w", err)
	} else if !ok {
		return fmt.Errorf("radio preconfig: dealer mode entry rejected")
	}

	for _, entry := range plan {
		rxHz := uint32(int64(baseHz) + int64(entry.OffsetMultiple)*int64(radioFreqStepHz))
		if ok, _, err := rc.AddChannel(entry.Channel, rxHz, rxHz, radioFreqStepHz); err != nil {
			return fmt.Errorf("radio preconfig: add channel %d: %w", entry.Channel, err)
		} else if !ok {
			return fmt.Errorf("radio preconfig: channel %d rejected", entry.Channel)
		}
	}

	if ok, _, err := rc.ProgramSettings(); err != nil {
		return fmt.Errorf("radio preconfig: program settings: %w", err)
	} else if !ok {
		return fmt.Errorf("radio preconfig: program settings rejected")
	}

	_, _, err := rc.ExitCommandMode()
	return err
}
