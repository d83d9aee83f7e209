package main

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// NewStationMetrics registers into the default Prometheus registry, so this
// package exercises exactly one instance across all assertions below —
// constructing a second would panic with a duplicate-registration error.
func TestStationMetricsRecording(t *testing.T) {
	m := NewStationMetrics()

	m.RecordPacket(DecodedPacket{ErrorsCorrected: true})
	m.RecordPacket(DecodedPacket{Err: ErrTooCorrupt})
	assert.Equal(t, float64(2), testutil.ToFloat64(m.packetsReceived))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.packetsCorrected))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.packetsTooCorrupt))

	m.RecordUplinkAttempt("echo_cmd", true)
	m.RecordUplinkAttempt("echo_cmd", false)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.uplinkAttempts.WithLabelValues("echo_cmd")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.uplinkSuccesses.WithLabelValues("echo_cmd")))

	m.RecordRadioRetriesExhausted()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.radioRetriesExhausted))

	m.SetScheduleIndex(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.scheduleIndex))

	m.SetSecondsSinceLastPacket(45 * time.Second)
	assert.Equal(t, float64(45), testutil.ToFloat64(m.secondsSinceLastPkt))
}
