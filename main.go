package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// DebugMode mirrors the teacher's global debug flag (main.go). It is set
// from --debug; no code in this package reads it, so it does not change
// what is logged.
var DebugMode bool

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	testMode := flag.Bool("test", false, "Run against a replay/mock serial port instead of a real device")
	radioPreconfig := flag.Bool("radio_preconfig", false, "Preconfigure the radio's channel table from the Doppler-offset plan before starting the main loop")
	flag.Parse()

	DebugMode = *debug

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *testMode {
		cfg.Serial.TestMode = true
	}

	if err := run(cfg, *radioPreconfig); err != nil {
		log.Fatalf("groundstation: %v", err)
	}
}

func run(cfg *Config, radioPreconfig bool) error {
	port, err := openConfiguredSerialPort(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	radio := NewRadioController(port)

	if radioPreconfig {
		plan, err := LoadPreconfigPlan(cfg.Radio.PreconfigCSV)
		if err != nil {
			return err
		}
		if err := PreconfigureChannels(radio, cfg.Radio.BaseFreqHz, plan); err != nil {
			return fmt.Errorf("radio preconfig: %w", err)
		}
		log.Printf("groundstation: preconfigured %d radio channels", len(plan))
	}

	catalog, err := LoadUplinkCatalog(cfg.Uplink.CatalogCSV)
	if err != nil {
		return err
	}

	var sched *Scheduler
	uplink := NewUplinkTransmitter(port, func() bool {
		if sched == nil {
			return cfg.Station.TXDisabled
		}
		return sched.txDisabled()
	})

	predictor := NewStaticPassPredictor(0, orbitalPeriodS/4)

	var sink PacketSink = NewLocalPacketSink(256)
	if cfg.MQTT.Enabled {
		mqttSink, err := NewMQTTPacketSink(cfg.MQTT)
		if err != nil {
			log.Printf("mqtt sink unavailable, falling back to local sink only: %v", err)
		} else {
			defer mqttSink.Close()
			sink = NewMultiPacketSink(sink, mqttSink)
		}
	}

	var metrics *StationMetrics
	if cfg.Metrics.Enabled {
		metrics = NewStationMetrics()
	}

	var rxDump *RxDump
	if cfg.RxDump.Path != "" {
		rxDump, err = NewRxDump(cfg.RxDump)
		if err != nil {
			log.Printf("rx dump unavailable: %v", err)
		} else {
			defer rxDump.Close()
		}
	}

	sched = NewScheduler(cfg, NewPacketFramer(), radio, uplink, predictor, sink, metrics, rxDump, catalog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("groundstation: shutting down")
		cancel()
	}()

	if metrics != nil {
		go metrics.ServeHTTP(ctx, cfg.Metrics.Listen)
		go metrics.StartHostHealthSampler(ctx, mainLoopTick*20)
	}

	log.Printf("groundstation: station %q starting", cfg.Station.Name)
	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// openConfiguredSerialPort opens either a real serial device or a replay
// mock, per cfg.Serial.TestMode — the demo-harness equivalent of the
// source's --serial_infile launch flag. There is no output-file option:
// the mock keeps written bytes in memory only.
func openConfiguredSerialPort(cfg SerialConfig) (SerialPort, error) {
	if cfg.TestMode {
		mock := NewMockSerialPort()
		if cfg.ReplayInFile != "" {
			if err := mock.LoadReplayFile(cfg.ReplayInFile); err != nil {
				return nil, err
			}
		}
		return mock, nil
	}
	return OpenSerialPort(cfg.Port, cfg.Baud)
}
