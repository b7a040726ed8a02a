//  config_test.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
)

func TestParseConfigHumanSizes(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
mtu: 9000
ipv4-address: 10.0.0.2
ipv6-addresses: [fd00::2]
pool-block-size: 2KiB
pool-max-block-size: 64KiB
pool-max-free-per-class: 16
platform: darwin
log-level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.MTU)
	assert.Equal(t, ByteSize(2048), cfg.PoolBlockSize)
	assert.Equal(t, ByteSize(64<<10), cfg.PoolMaxBlockSize)
	assert.Equal(t, 16, cfg.PoolMaxFreePerClass)
	assert.Equal(t, option.PlatformDarwin, cfg.platform())
}

func TestParseConfigNumericSizes(t *testing.T) {
	cfg, err := ParseConfig([]byte("pool-block-size: 4096\n"))
	require.NoError(t, err)
	assert.Equal(t, ByteSize(4096), cfg.PoolBlockSize)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 1500, cfg.MTU)
	assert.NotZero(t, cfg.PoolBlockSize)
	assert.NotZero(t, cfg.PoolMaxBlockSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, option.DefaultPlatform(), cfg.platform())
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	_, err := ParseConfig([]byte("pool-block-size: 64KiB\npool-max-block-size: 2KiB\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("platform: windows\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("ipv4-address: not-an-address\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("pool-block-size: lots\n"))
	assert.Error(t, err)

	_, err = ParseConfig([]byte("log-level: shouting\n"))
	assert.Error(t, err)
}
