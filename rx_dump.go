package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
)

// RxDump is an append-only raw-byte dump writer (SPEC_FULL.md §6's
// rx_data.log), flushed on every write, rotated and gzip-compressed once
// the active segment crosses RotateBytes. No single teacher file owns log
// rotation; the rotation policy here is original to this repo, but the
// compression library choice (klauspost/compress) is grounded on the
// teacher's own go.mod dependency (see DESIGN.md).
type RxDump struct {
	path        string
	rotateBytes int64
	compress    bool

	f       *os.File
	written int64
}

func NewRxDump(cfg RxDumpConfig) (*RxDump, error) {
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("rx dump: open %s: %w", cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rx dump: stat %s: %w", cfg.Path, err)
	}
	return &RxDump{
		path:        cfg.Path,
		rotateBytes: cfg.RotateBytes,
		compress:    cfg.CompressRotated,
		f:           f,
		written:     info.Size(),
	}, nil
}

// Write appends raw bytes and rotates the segment if it has crossed the
// configured size threshold.
func (d *RxDump) Write(b Bytes) error {
	if len(b) == 0 {
		return nil
	}
	n, err := d.f.Write(b)
	if err != nil {
		return fmt.Errorf("rx dump: write: %w", err)
	}
	d.written += int64(n)
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("rx dump: sync: %w", err)
	}
	if d.rotateBytes > 0 && d.written >= d.rotateBytes {
		return d.rotate()
	}
	return nil
}

func (d *RxDump) rotate() error {
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("rx dump: close before rotate: %w", err)
	}

	rotatedName := fmt.Sprintf("%s.%d", d.path, time.Now().UnixNano())
	if err := os.Rename(d.path, rotatedName); err != nil {
		return fmt.Errorf("rx dump: rename %s: %w", d.path, err)
	}

	if d.compress {
		if err := gzipFile(rotatedName); err != nil {
			return fmt.Errorf("rx dump: compress rotated segment: %w", err)
		}
	}

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("rx dump: reopen %s after rotate: %w", d.path, err)
	}
	d.f = f
	d.written = 0
	return nil
}

func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return fmt.Errorf("create %s.gz: %w", path, err)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		return fmt.Errorf("gzip %s: %w", path, err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("gzip close %s: %w", path, err)
	}
	return os.Remove(path)
}

func (d *RxDump) Close() error {
	return d.f.Close()
}
