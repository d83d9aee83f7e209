package main

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// dopplerState is the two-state machine driving correct_for_doppler
// (SPEC_FULL.md §4.9).
type dopplerState int

const (
	dopplerNotReady dopplerState = iota
	dopplerReadyForPass
)

// StationState holds everything the loop thread mutates. Fields here are
// touched only by the owner goroutine running Scheduler.Run; external
// reads go through Scheduler's mutex-guarded accessor methods (Status,
// EnqueueUplink, CancelUplink, SetDebugLevel), mirroring the teacher's
// split between a single rotator-control owner (RotctlClient) and its
// externally-facing, mutex-guarded HTTP handler (RotctlAPIHandler).
type StationState struct {
	RxBufHex       HexText
	LastDataRx     time.Time
	LastPacketRx   time.Time
	Pending        []RawPacket
	Schedule       DopplerSchedule
	ScheduleIndex  int
	DopplerState   dopplerState
	UpdatePassTime time.Time
	DebugLevel     int

	// OnlySendTxCmd mirrors only_send_tx_cmd from the source's
	// groundstation.py/cli.py: when set, transmit resends the queue's front
	// command every tick regardless of packet arrival, instead of the usual
	// pop-on-packet-receipt gating. Set by EnqueueUplink's immediate=true
	// (the CLI's `tx <cmd> immediate`), cleared by CancelUplink (the CLI's
	// `cancel_immediate_tx_cmd`).
	OnlySendTxCmd bool
}

// Scheduler runs the single cooperative main loop described in
// SPEC_FULL.md §4.9/§5, grounded on
// original_source/groundstation/groundstation.py's mainloop/receive/
// transmit/correct_for_doppler/interlace_doppler_and_tx_times. The
// external control surface (EnqueueUplink/CancelUplink/Status/
// SetDebugLevel) is synchronized with the loop via mu, following the
// teacher's RotctlAPIHandler-over-RotctlClient separation.
type Scheduler struct {
	mu sync.Mutex

	cfg       *Config
	framer    *PacketFramer
	radio     *RadioController
	uplink    *UplinkTransmitter
	predictor PassPredictor
	planner   *DopplerPlanner
	sink      PacketSink
	metrics   *StationMetrics
	rxDump    *RxDump
	catalog   map[string]UplinkCommand

	state     StationState
	txQueue   []TxQueueItem
	txDisable bool

	lastPeriodicScan time.Time
}

func NewScheduler(
	cfg *Config,
	framer *PacketFramer,
	radio *RadioController,
	uplink *UplinkTransmitter,
	predictor PassPredictor,
	sink PacketSink,
	metrics *StationMetrics,
	rxDump *RxDump,
	catalog map[string]UplinkCommand,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		framer:    framer,
		radio:     radio,
		uplink:    uplink,
		predictor: predictor,
		planner:   NewDopplerPlanner(predictor),
		sink:      sink,
		metrics:   metrics,
		rxDump:    rxDump,
		catalog:   catalog,
		txDisable: cfg.Station.TXDisabled,
		state: StationState{
			DopplerState: dopplerNotReady,
		},
	}
}

// Run executes the main loop until ctx is cancelled. Each iteration:
// receive, transmit, correct_for_doppler, periodic rescan, publish.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(mainLoopTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: context cancelled, stopping main loop")
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: recovered from panic in loop iteration: %v\n%s", r, debug.Stack())
		}
	}()
	justReceived := s.receive()
	s.transmit(justReceived)
	s.correctForDoppler()
	s.periodicRescan()
	s.publish()
}

// receive pulls all available bytes off the radio link, hex-encodes them
// into rx_buf, stamps last_data_rx, and scans for complete frames.
func (s *Scheduler) receive() bool {
	n, err := s.radio.port.BytesAvailable()
	if err != nil {
		log.Printf("scheduler: receive: poll error: %v", err)
		return false
	}
	if n == 0 {
		return false
	}
	chunk, err := s.radio.port.Read(n)
	if err != nil {
		log.Printf("scheduler: receive: read error: %v", err)
		return false
	}
	if len(chunk) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastDataRx = time.Now()
	s.state.RxBufHex += BytesToHex(chunk)

	if s.rxDump != nil {
		if err := s.rxDump.Write(chunk); err != nil {
			log.Printf("scheduler: rx dump write failed: %v", err)
		}
	}

	return s.scanForPacketsLocked()
}

// scanForPacketsLocked extracts frames from rx_buf, appends them to the
// pending-publish list, trims consumed bytes, and caps the buffer at
// maxBufHex. Must be called with s.mu held.
func (s *Scheduler) scanForPacketsLocked() bool {
	frames := s.framer.Extract(s.state.RxBufHex)
	if len(frames) == 0 {
		kept, dropped := s.framer.Cap(s.state.RxBufHex, maxBufHex, packetLenHex)
		if len(dropped) > 0 {
			s.state.RxBufHex = kept
		}
		return false
	}

	last := frames[len(frames)-1]
	s.state.Pending = append(s.state.Pending, frames...)
	s.state.RxBufHex = s.framer.TrimAfterLast(s.state.RxBufHex, last.Offset)
	s.state.LastPacketRx = time.Now()

	kept, _ := s.framer.Cap(s.state.RxBufHex, maxBufHex, packetLenHex)
	s.state.RxBufHex = kept
	return true
}

// transmit attempts the front of the tx queue when either a packet was just
// observed, or state.OnlySendTxCmd holds the queue's front command armed for
// continuous retransmission (SPEC_FULL.md §4.9 step 2). In the latter case
// the front item is resent every tick without being popped, using the
// general-purpose bounded-retry Send; otherwise it is popped and sent via
// SendPostPacket, timed to land inside the satellite's post-packet receive
// window, and re-prepended on failure so it stays at the front for the next
// attempt (the next tick that observes a packet).
func (s *Scheduler) transmit(justReceived bool) {
	s.mu.Lock()
	onlySend := s.state.OnlySendTxCmd
	if !justReceived && !onlySend {
		s.mu.Unlock()
		return
	}
	if len(s.txQueue) == 0 {
		s.mu.Unlock()
		return
	}
	item := s.txQueue[0]
	if !onlySend {
		s.txQueue = s.txQueue[1:]
	}
	s.mu.Unlock()

	var ok bool
	var err error
	if onlySend {
		ok, _, err = s.uplink.Send(item.Command)
	} else {
		ok, _, err = s.uplink.SendPostPacket(item.Command, false)
	}
	if s.metrics != nil {
		s.metrics.RecordUplinkAttempt(item.Command.Name, ok)
	}
	if err != nil || !ok {
		log.Printf("scheduler: uplink %s failed: %v", item.Command.Name, err)
		if !onlySend {
			s.mu.Lock()
			s.txQueue = append([]TxQueueItem{item}, s.txQueue...)
			s.mu.Unlock()
		}
	}
}

// correctForDoppler drives the ReadyForPass/NotReady state machine
// described in SPEC_FULL.md §4.9.
func (s *Scheduler) correctForDoppler() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	switch s.state.DopplerState {
	case dopplerNotReady:
		if now.Before(s.state.UpdatePassTime) {
			return
		}
		pass, err := s.predictor.NextPass(now)
		if err != nil {
			log.Printf("scheduler: pass prediction failed: %v", err)
			s.state.UpdatePassTime = now.Add(dopplerFailRetryDelayS)
			return
		}
		schedule := s.planner.BuildSchedule(*pass, float64(s.cfg.Radio.BaseFreqHz))
		s.state.Schedule = schedule
		s.state.ScheduleIndex = 0
		if ok := s.activateChannelLocked(schedule[0].ChannelIndex); ok {
			s.state.ScheduleIndex = 1
			s.state.DopplerState = dopplerReadyForPass
			s.state.UpdatePassTime = now.Add(orbitalPeriodS)
		} else {
			s.state.UpdatePassTime = now.Add(dopplerFailRetryDelayS)
		}

	case dopplerReadyForPass:
		if s.state.ScheduleIndex >= len(s.state.Schedule) {
			lastPass := s.state.Schedule[len(s.state.Schedule)-1].ActivationTime
			halfOrbit := orbitalPeriodS / 2
			next := lastPass.Add(halfOrbit)
			if now.Add(halfOrbit).After(next) {
				next = now.Add(halfOrbit)
			}
			s.state.UpdatePassTime = next
			s.state.DopplerState = dopplerNotReady
			return
		}

		s.interlaceLocked()

		next := s.state.Schedule[s.state.ScheduleIndex]
		if now.Before(next.ActivationTime) {
			return
		}
		if ok := s.activateChannelLocked(next.ChannelIndex); ok {
			s.state.ScheduleIndex++
		}
		if s.metrics != nil {
			s.metrics.SetScheduleIndex(s.state.ScheduleIndex)
		}
	}
}

// interlaceLocked nudges the next scheduled activation to the midpoint
// between expected packet arrivals, per SPEC_FULL.md §4.9's
// interlace_with_tx_times (anchored on last_packet_rx per DESIGN.md's
// Open Question #1 resolution). Must be called with s.mu held.
func (s *Scheduler) interlaceLocked() {
	if s.state.LastPacketRx.IsZero() {
		return
	}
	if s.state.ScheduleIndex >= len(s.state.Schedule) {
		return
	}

	entry := &s.state.Schedule[s.state.ScheduleIndex]
	p := packetSendFreqS
	r := entry.ActivationTime.Sub(s.state.LastPacketRx) % p
	if r < 0 {
		r += p
	}
	adjustment := p/2 - r
	entry.ActivationTime = entry.ActivationTime.Add(adjustment)
}

// activateChannelLocked switches the radio to the given channel, wrapped in
// a command-mode enter/exit toggle as original_source/groundstation/
// groundstation.py's radio_activate_pass_freq does for every channel
// activation. Must be called with s.mu held; releasing briefly is not
// needed since RadioController has its own internal mutex.
func (s *Scheduler) activateChannelLocked(channel int) bool {
	if ok, _, err := s.radio.EnterCommandMode(false); err != nil || !ok {
		if err != nil {
			log.Printf("scheduler: activate channel %d: enter command mode: %v", channel, err)
		}
		if s.metrics != nil {
			s.metrics.RecordRadioRetriesExhausted()
		}
		return false
	}

	ok, _, err := s.radio.SetChannel(channel)
	if err != nil {
		log.Printf("scheduler: activate channel %d: %v", channel, err)
	}
	if !ok && s.metrics != nil {
		s.metrics.RecordRadioRetriesExhausted()
	}

	if _, _, err := s.radio.ExitCommandMode(); err != nil {
		log.Printf("scheduler: activate channel %d: exit command mode: %v", channel, err)
	}

	return ok
}

// periodicRescan re-runs frame extraction as a safety net every
// periodicPacketScanFreqS, independent of new data arriving.
func (s *Scheduler) periodicRescan() {
	now := time.Now()
	if now.Sub(s.lastPeriodicScan) < periodicPacketScanFreqS {
		return
	}
	s.lastPeriodicScan = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanForPacketsLocked()
}

// publish decodes every pending packet and hands it to the sink.
func (s *Scheduler) publish() {
	s.mu.Lock()
	pending := s.state.Pending
	s.state.Pending = nil
	lastPacketRx := s.state.LastPacketRx
	s.mu.Unlock()

	for _, raw := range pending {
		decoded := decodeRawPacket(raw)
		if s.metrics != nil {
			s.metrics.RecordPacket(decoded)
		}
		if err := s.sink.Publish(decoded); err != nil {
			log.Printf("scheduler: publish failed: %v", err)
		}
	}

	if s.metrics != nil && !lastPacketRx.IsZero() {
		s.metrics.SetSecondsSinceLastPacket(time.Since(lastPacketRx))
	}
}

// decodeRawPacket strips the header, RS-decodes the codeword, and builds
// the DecodedPacket the sink sees.
func decodeRawPacket(raw RawPacket) DecodedPacket {
	full, err := raw.Hex.ToBytes()
	if err != nil {
		return DecodedPacket{RawHex: raw.Hex, Err: err}
	}
	if len(full) != packetLenBytes {
		return DecodedPacket{RawHex: raw.Hex, Err: ErrTooCorrupt}
	}

	codeword := full[headerBytes:]
	corrected, err := DecodeRS243(Bytes(codeword))
	if err != nil {
		return DecodedPacket{RawHex: raw.Hex, ErrorsCorrected: false, Err: err}
	}

	return DecodedPacket{
		RawHex:          raw.Hex,
		CorrectedHex:    BytesToHex(corrected),
		Parsed:          corrected,
		ErrorsCorrected: true,
	}
}

// --- External control surface: mutex-guarded, safe to call concurrently
// with Run. ---

// EnqueueUplinkByName looks up name in the loaded uplink catalog and
// enqueues it, the equivalent of the source CLI's `tx <cmd> [immediate]`.
func (s *Scheduler) EnqueueUplinkByName(name string, immediate bool) error {
	s.mu.Lock()
	cmd, ok := s.catalog[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("enqueue uplink: unknown command %q", name)
	}
	s.EnqueueUplink(cmd, immediate)
	return nil
}

// EnqueueUplink appends an uplink command to the transmit queue.
// immediate=true inserts it at the front of the queue and arms
// state.OnlySendTxCmd, the equivalent of the source CLI's `tx <cmd>
// immediate` debug mode: the front command is then resent every tick until
// cancelled, rather than waiting for the next packet arrival.
func (s *Scheduler) EnqueueUplink(cmd UplinkCommand, immediate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := TxQueueItem{Command: cmd, Immediate: immediate}
	if immediate {
		s.txQueue = append([]TxQueueItem{item}, s.txQueue...)
		s.state.OnlySendTxCmd = true
		return
	}
	s.txQueue = append(s.txQueue, item)
}

// CancelUplink removes the first queued command matching name, or every
// matching command if all is true. Any successful removal also clears
// state.OnlySendTxCmd, the equivalent of the source CLI's
// cancel_immediate_tx_cmd.
func (s *Scheduler) CancelUplink(name string, all bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	out := s.txQueue[:0]
	for _, item := range s.txQueue {
		if item.Command.Name == name && (all || removed == 0) {
			removed++
			continue
		}
		out = append(out, item)
	}
	s.txQueue = out
	if removed > 0 {
		s.state.OnlySendTxCmd = false
	}
	return removed
}

// SchedulerStatus is a snapshot of the loop's current state for the
// external control surface.
type SchedulerStatus struct {
	RxBufLen      int
	PendingCount  int
	TxQueueLen    int
	ScheduleIndex int
	ScheduleLen   int
	DopplerReady  bool
	LastPacketRx  time.Time
	TxDisabled    bool
	OnlySendTxCmd bool
}

// Status returns a read-only snapshot of the scheduler's state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		RxBufLen:      len(s.state.RxBufHex),
		PendingCount:  len(s.state.Pending),
		TxQueueLen:    len(s.txQueue),
		ScheduleIndex: s.state.ScheduleIndex,
		ScheduleLen:   len(s.state.Schedule),
		DopplerReady:  s.state.DopplerState == dopplerReadyForPass,
		LastPacketRx:  s.state.LastPacketRx,
		TxDisabled:    s.txDisable,
		OnlySendTxCmd: s.state.OnlySendTxCmd,
	}
}

// SetDebugLevel sets the runtime-tunable log verbosity.
func (s *Scheduler) SetDebugLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DebugLevel = level
}

// SetTxDisabled toggles the station-wide transmit-disable flag.
func (s *Scheduler) SetTxDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txDisable = disabled
}

func (s *Scheduler) txDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txDisable
}
