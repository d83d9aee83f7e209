package main

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialPort is the byte-level abstraction the radio control stack is built
// on. Read never blocks: if nothing is available it returns an empty slice.
// No retries happen at this layer — errors are surfaced to the caller.
type SerialPort interface {
	BytesAvailable() (int, error)
	Read(max int) (Bytes, error)
	Write(b Bytes) (int, error)
	Flush() error
	Close() error
}

// RealSerialPort opens an actual OS serial device, grounded on the teacher's
// own clients/go/serial_control.go CAT-server use of go.bug.st/serial.
type RealSerialPort struct {
	portName string
	baud     int
	port     serial.Port
	pending  []byte
}

func OpenSerialPort(portName string, baud int) (*RealSerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(50 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}
	return &RealSerialPort{portName: portName, baud: baud, port: port}, nil
}

// BytesAvailable is approximated by attempting a non-blocking read and
// handing the bytes straight back out; go.bug.st/serial does not expose an
// in_waiting count the way pyserial does, so Read is the only primitive and
// BytesAvailable reports the length of what it could read without blocking.
func (p *RealSerialPort) BytesAvailable() (int, error) {
	buf := make([]byte, 4096)
	n, err := p.port.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("poll serial port %s: %w", p.portName, err)
	}
	if n > 0 {
		p.pending = append(p.pending, buf[:n]...)
	}
	return len(p.pending), nil
}

func (p *RealSerialPort) Read(max int) (Bytes, error) {
	if len(p.pending) == 0 {
		buf := make([]byte, max)
		n, err := p.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read serial port %s: %w", p.portName, err)
		}
		return Bytes(buf[:n]), nil
	}
	if max > len(p.pending) {
		max = len(p.pending)
	}
	out := p.pending[:max]
	p.pending = p.pending[max:]
	return Bytes(out), nil
}

func (p *RealSerialPort) Write(b Bytes) (int, error) {
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("write serial port %s: %w", p.portName, err)
	}
	return n, nil
}

func (p *RealSerialPort) Flush() error {
	if err := p.port.Drain(); err != nil {
		return fmt.Errorf("flush serial port %s: %w", p.portName, err)
	}
	return nil
}

func (p *RealSerialPort) Close() error {
	return p.port.Close()
}

// ListSerialPorts enumerates available serial devices for operator
// diagnostics, carried over from the teacher's ListSerialPorts helper.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
