package main

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRxDumpWriteAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.log")
	d, err := NewRxDump(RxDumpConfig{Path: path})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(Bytes("hello")))
	require.NoError(t, d.Write(Bytes("world")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(data))
}

func TestRxDumpRotatesPastThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.log")
	d, err := NewRxDump(RxDumpConfig{Path: path, RotateBytes: 4})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(Bytes("12345")))

	_, err = os.Stat(path)
	require.NoError(t, err, "active segment recreated after rotation")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	rotated, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "12345", string(rotated))
}

func TestRxDumpCompressesRotatedSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.log")
	d, err := NewRxDump(RxDumpConfig{Path: path, RotateBytes: 1, CompressRotated: true})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(Bytes("payload")))

	matches, err := filepath.Glob(path + ".*.gz")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gr.Close()
	data, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
