package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// StationMetrics registers and updates the operational Prometheus
// counters/gauges added by this specification (SPEC_FULL.md §11).
// Grounded on prometheus.go's NewPrometheusMetrics/promauto.NewGaugeVec
// registration pattern, trimmed to the groundstation's own signals.
type StationMetrics struct {
	packetsReceived   prometheus.Counter
	packetsCorrected  prometheus.Counter
	packetsTooCorrupt prometheus.Counter

	uplinkAttempts  *prometheus.CounterVec
	uplinkSuccesses *prometheus.CounterVec

	radioRetriesExhausted prometheus.Counter
	scheduleIndex         prometheus.Gauge
	secondsSinceLastPkt   prometheus.Gauge

	hostCPUPercent prometheus.Gauge
	hostMemPercent prometheus.Gauge
	hostUptimeSecs prometheus.Gauge
}

// NewStationMetrics creates and registers all station metrics.
func NewStationMetrics() *StationMetrics {
	return &StationMetrics{
		packetsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "groundstation_packets_received_total",
			Help: "Total downlink frames extracted from the receive buffer.",
		}),
		packetsCorrected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "groundstation_packets_corrected_total",
			Help: "Total downlink frames published with errors_corrected=true.",
		}),
		packetsTooCorrupt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "groundstation_packets_too_corrupt_total",
			Help: "Total downlink frames that exceeded RS error-correction capacity.",
		}),
		uplinkAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "groundstation_uplink_attempts_total",
			Help: "Total uplink command attempts, by command name.",
		}, []string{"command"}),
		uplinkSuccesses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "groundstation_uplink_successes_total",
			Help: "Total uplink commands that observed their expected response, by command name.",
		}, []string{"command"}),
		radioRetriesExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "groundstation_radio_retries_exhausted_total",
			Help: "Total radio commands that failed after all retries.",
		}),
		scheduleIndex: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "groundstation_doppler_schedule_index",
			Help: "Current index into the active Doppler correction schedule.",
		}),
		secondsSinceLastPkt: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "groundstation_seconds_since_last_packet",
			Help: "Seconds elapsed since the last downlink packet was received.",
		}),
		hostCPUPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "groundstation_host_cpu_percent",
			Help: "Host CPU utilization percent, sampled periodically.",
		}),
		hostMemPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "groundstation_host_mem_percent",
			Help: "Host memory utilization percent, sampled periodically.",
		}),
		hostUptimeSecs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "groundstation_host_uptime_seconds",
			Help: "Host uptime in seconds, sampled periodically.",
		}),
	}
}

func (m *StationMetrics) RecordPacket(pkt DecodedPacket) {
	m.packetsReceived.Inc()
	if pkt.Err != nil {
		m.packetsTooCorrupt.Inc()
		return
	}
	if pkt.ErrorsCorrected {
		m.packetsCorrected.Inc()
	}
}

func (m *StationMetrics) RecordUplinkAttempt(name string, ok bool) {
	m.uplinkAttempts.WithLabelValues(name).Inc()
	if ok {
		m.uplinkSuccesses.WithLabelValues(name).Inc()
	}
}

func (m *StationMetrics) RecordRadioRetriesExhausted() {
	m.radioRetriesExhausted.Inc()
}

func (m *StationMetrics) SetScheduleIndex(i int) {
	m.scheduleIndex.Set(float64(i))
}

func (m *StationMetrics) SetSecondsSinceLastPacket(d time.Duration) {
	m.secondsSinceLastPkt.Set(d.Seconds())
}

// ServeHTTP starts the Prometheus scrape endpoint on listenAddr, mirroring
// the teacher's own promhttp.Handler() wiring into its HTTP mux in main.go.
func (m *StationMetrics) ServeHTTP(ctx context.Context, listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("metrics: serving Prometheus endpoint on %s", listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("metrics: server error: %v", err)
	}
}

// StartHostHealthSampler periodically samples host CPU/memory/uptime into
// the exported gauges, the same ambient-health-reporting role gopsutil
// plays for the teacher's own process, applied here to the groundstation
// host.
func (m *StationMetrics) StartHostHealthSampler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleHostHealth()
		}
	}
}

func (m *StationMetrics) sampleHostHealth() {
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		m.hostCPUPercent.Set(pct[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		m.hostMemPercent.Set(vm.UsedPercent)
	}
	if info, err := host.Info(); err == nil {
		m.hostUptimeSecs.Set(float64(info.Uptime))
	}
}
