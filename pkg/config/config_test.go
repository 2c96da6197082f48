package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesObservedWireValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "i2c", cfg.Bus.Adapter)
	assert.EqualValues(t, 0x5A, cfg.T1.HostNAD)
	assert.EqualValues(t, 0xA5, cfg.T1.CardNAD)
	assert.EqualValues(t, 254, cfg.T1.FallbackIFSC)
}

func TestLoadOverlaysOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "se050.ini")
	contents := "[bus]\nadapter = virtual\nchannel = /dev/i2c-3\naddr = 0x29\n\n[t1]\nvalidate_nad = false\nfallback_ifsc = 64\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "virtual", cfg.Bus.Adapter)
	assert.Equal(t, "/dev/i2c-3", cfg.Bus.Channel)
	assert.EqualValues(t, 0x29, cfg.Bus.Addr)
	assert.False(t, cfg.T1.ValidateNAD)
	assert.EqualValues(t, 64, cfg.T1.FallbackIFSC)
	// Keys absent from the file keep their default.
	assert.EqualValues(t, 0x5A, cfg.T1.HostNAD)
	assert.EqualValues(t, 1000, cfg.T1.FallbackBWTMillis)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
