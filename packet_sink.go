package main

import "log"

// PacketSink is the externally-consumed publish target for decoded
// downlink packets (SPEC_FULL.md §4.10). Delivery is best-effort;
// failures are logged by the sink itself and never retried by the core.
type PacketSink interface {
	Publish(pkt DecodedPacket) error
}

// LocalPacketSink logs every packet and keeps the most recent ones in a
// fixed-size in-memory ring buffer, for tests and standalone/offline
// operation where no broker is configured. Grounded on decoder.go's
// OnDecode/notifyDecode callback-registration pattern, simplified to a
// single sink interface rather than a list of callbacks.
type LocalPacketSink struct {
	ring []DecodedPacket
	next int
	full bool
}

func NewLocalPacketSink(capacity int) *LocalPacketSink {
	if capacity < 1 {
		capacity = 1
	}
	return &LocalPacketSink{ring: make([]DecodedPacket, capacity)}
}

func (s *LocalPacketSink) Publish(pkt DecodedPacket) error {
	if pkt.Err != nil {
		log.Printf("packet sink: decode error: %v", pkt.Err)
	} else {
		log.Printf("packet sink: published packet (errors_corrected=%v)", pkt.ErrorsCorrected)
	}
	s.ring[s.next] = pkt
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Recent returns the buffered packets in oldest-to-newest order.
func (s *LocalPacketSink) Recent() []DecodedPacket {
	if !s.full {
		out := make([]DecodedPacket, s.next)
		copy(out, s.ring[:s.next])
		return out
	}
	out := make([]DecodedPacket, len(s.ring))
	copy(out, s.ring[s.next:])
	copy(out[len(s.ring)-s.next:], s.ring[:s.next])
	return out
}

// MultiPacketSink fans a publication out to every wrapped sink, continuing
// past failures, and returns the first error it saw (later errors are not
// returned).
type MultiPacketSink struct {
	sinks []PacketSink
}

func NewMultiPacketSink(sinks ...PacketSink) *MultiPacketSink {
	return &MultiPacketSink{sinks: sinks}
}

func (m *MultiPacketSink) Publish(pkt DecodedPacket) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Publish(pkt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
