package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadUplinkCatalogParsesRows(t *testing.T) {
	path := writeTempCatalog(t, "protocol_version,1.0.0\necho_cmd,4543484f3f,ECHOCHOCO\nbeacon_cmd,42,OK\n")

	catalog, err := LoadUplinkCatalog(path)
	require.NoError(t, err)
	require.Contains(t, catalog, "echo_cmd")

	cmd := catalog["echo_cmd"]
	assert.Equal(t, Bytes("ECHO?"), cmd.CommandBytes)
	assert.Equal(t, Bytes("ECHOCHOCO"), cmd.ExpectedResponseBytes)
}

func TestLoadUplinkCatalogRejectsOldProtocolVersion(t *testing.T) {
	path := writeTempCatalog(t, "protocol_version,0.1.0\necho_cmd,4543484f3f,ECHOCHOCO\n")

	_, err := LoadUplinkCatalog(path)
	assert.Error(t, err)
}

func TestLoadUplinkCatalogRejectsBadHex(t *testing.T) {
	path := writeTempCatalog(t, "protocol_version,1.0.0\nbad_cmd,zzz,OK\n")

	_, err := LoadUplinkCatalog(path)
	assert.Error(t, err)
}

func TestLoadUplinkCatalogMissingFileErrors(t *testing.T) {
	_, err := LoadUplinkCatalog(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
