package main

import (
	"fmt"
	"time"
)

// PassPredictor is the externally-supplied orbital-mechanics oracle
// (SPEC_FULL.md §4.7). A real implementation wraps SGP4 propagation over a
// TLE; this repo ships only the interface plus a trivial static
// implementation for demos, integration tests, and as a fallback.
type PassPredictor interface {
	UpdateTLE() error
	NextPass(start time.Time) (*PassData, error)
	DopplerFactor(at time.Time) float64
	DopplerThresholdTimes(thresholds []float64, pass PassData, baseHz float64) map[float64]*time.Time
}

// StaticPassPredictor always reports the same fixed, pre-baked pass. It
// exists so the scheduler and its tests can run without a real TLE/SGP4
// dependency wired in.
type StaticPassPredictor struct {
	Pass PassData
}

// NewStaticPassPredictor builds a predictor that always returns the same
// pass, starting at riseIn from the moment of construction.
func NewStaticPassPredictor(riseIn, duration time.Duration) *StaticPassPredictor {
	rise := time.Now().Add(riseIn)
	return &StaticPassPredictor{
		Pass: PassData{
			RiseTime:          rise,
			RiseAz:            0,
			MaxAltTime:        rise.Add(duration / 2),
			MaxAltDeg:         45,
			SetTime:           rise.Add(duration),
			SetAz:             180,
			RiseDopplerFactor: 3.5e-5,
			SetDopplerFactor:  -3.5e-5,
		},
	}
}

func (p *StaticPassPredictor) UpdateTLE() error { return nil }

func (p *StaticPassPredictor) NextPass(start time.Time) (*PassData, error) {
	if p.Pass.SetTime.Before(start) {
		return nil, fmt.Errorf("static pass predictor: no future pass after %s", start)
	}
	pass := p.Pass
	return &pass, nil
}

// DopplerFactor linearly interpolates between rise and set factors; a real
// predictor would evaluate range-rate from SGP4 propagation instead.
func (p *StaticPassPredictor) DopplerFactor(at time.Time) float64 {
	total := p.Pass.SetTime.Sub(p.Pass.RiseTime)
	if total <= 0 {
		return 0
	}
	frac := at.Sub(p.Pass.RiseTime).Seconds() / total.Seconds()
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return p.Pass.RiseDopplerFactor + frac*(p.Pass.SetDopplerFactor-p.Pass.RiseDopplerFactor)
}

// DopplerThresholdTimes finds, for each threshold frequency offset, the
// time during the pass at which baseHz*DopplerFactor(t) crosses it. The
// Doppler factor decreases monotonically across a pass (approach to
// recession), so a single linear scan suffices.
func (p *StaticPassPredictor) DopplerThresholdTimes(thresholds []float64, pass PassData, baseHz float64) map[float64]*time.Time {
	out := make(map[float64]*time.Time, len(thresholds))
	const steps = 10000
	total := pass.SetTime.Sub(pass.RiseTime)
	if total <= 0 {
		for _, th := range thresholds {
			out[th] = nil
		}
		return out
	}
	step := total / steps

	for _, th := range thresholds {
		out[th] = nil
		prevShift := baseHz * p.DopplerFactor(pass.RiseTime)
		for i := 1; i <= steps; i++ {
			t := pass.RiseTime.Add(step * time.Duration(i))
			shift := baseHz * p.DopplerFactor(t)
			if (prevShift >= th) != (shift >= th) {
				crossed := t
				out[th] = &crossed
				break
			}
			prevShift = shift
		}
	}
	return out
}
