package main

import (
	"math"
	"sort"
	"time"
)

// dopplerDelta is the channel spacing (6250 Hz) used to derive the four
// threshold frequencies.
const dopplerDelta = float64(radioFreqStepHz)

// dopplerThresholds are the four crossover frequencies monitored during a
// pass: +1.5Δ, +0.5Δ, -0.5Δ, -1.5Δ.
var dopplerThresholds = []float64{1.5 * dopplerDelta, 0.5 * dopplerDelta, -0.5 * dopplerDelta, -1.5 * dopplerDelta}

// DopplerPlanner builds a DopplerSchedule from pass geometry, the station's
// preferred channel-switching thresholds, and the radio's channel plan.
// Grounded on original_source/groundstation/groundstation.py's
// generate_doppler_corrections; the config-driven-schedule idiom (a
// predictor queried once, a sorted list of activations consumed by a
// separate execution loop) follows rotator_scheduler.go's
// getNextScheduledPosition/checkScheduledPositions split.
type DopplerPlanner struct {
	predictor PassPredictor
}

func NewDopplerPlanner(predictor PassPredictor) *DopplerPlanner {
	return &DopplerPlanner{predictor: predictor}
}

// BuildSchedule implements SPEC_FULL.md §4.8 steps 1-5.
func (p *DopplerPlanner) BuildSchedule(pass PassData, baseHz float64) DopplerSchedule {
	times := p.predictor.DopplerThresholdTimes(dopplerThresholds, pass, baseHz)

	type crossing struct {
		at   time.Time
		freq float64
	}
	var crossed []crossing
	for _, th := range dopplerThresholds {
		if t, ok := times[th]; ok && t != nil {
			crossed = append(crossed, crossing{at: *t, freq: th - 0.5*dopplerDelta})
		}
	}

	sort.Slice(crossed, func(i, j int) bool {
		return crossed[i].at.Before(crossed[j].at)
	})

	var schedule DopplerSchedule

	var preFreq float64
	switch len(crossed) {
	case 0:
		preFreq = 0
	case 1, 2:
		preFreq = dopplerDelta
	default:
		preFreq = 2 * dopplerDelta
	}
	schedule = append(schedule, DopplerCorrection{
		ActivationTime: pass.RiseTime,
		ChannelIndex:   freqToChannel(preFreq),
	})

	if len(crossed) == 0 {
		return schedule
	}

	for _, c := range crossed {
		schedule = append(schedule, DopplerCorrection{
			ActivationTime: c.at,
			ChannelIndex:   freqToChannel(c.freq),
		})
	}
	return schedule
}

// freqToChannel maps a target offset frequency to a channel index by
// rounding away from zero, per SPEC_FULL.md §4.8 step 5: |f| < 0.5Δ -> ch1;
// 0.5Δ <= |f| < 1.5Δ -> ch2 (positive) / ch3 (negative); |f| >= 1.5Δ -> ch4
// (positive) / ch5 (negative).
func freqToChannel(freq float64) int {
	abs := math.Abs(freq)
	switch {
	case abs < 0.5*dopplerDelta:
		return 1
	case abs < 1.5*dopplerDelta:
		if freq > 0 {
			return 2
		}
		return 3
	default:
		if freq > 0 {
			return 4
		}
		return 5
	}
}
