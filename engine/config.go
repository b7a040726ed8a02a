//  config.go
//  Pravala Network Toolkit
//
//  Copyright (c) 2026 Carnegie Technologies.
//
//  Runtime configuration surfaced to the host application. Byte-size fields
//  accept human-readable values ("2KiB", "64KiB").

package engine

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/docker/go-units"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/carnegie-technologies/pravala-toolkit-sub006/core/option"
	"github.com/carnegie-technologies/pravala-toolkit-sub006/memory"
)

// ByteSize is an int that unmarshals from YAML as either a number or a
// human-readable size string.
type ByteSize int

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := units.RAMInBytes(s)
	if err != nil {
		return fmt.Errorf("parse byte size %q: %w", s, err)
	}
	*b = ByteSize(v)
	return nil
}

// Config captures the runtime options surfaced to the host application.
type Config struct {
	// MTU applied to the virtual interface.
	MTU int `yaml:"mtu"`

	// IPv4Address and IPv6Addresses are assigned to the interface on
	// start. The interface comes up administratively once it has any
	// address.
	IPv4Address   string   `yaml:"ipv4-address"`
	IPv6Addresses []string `yaml:"ipv6-addresses"`

	// Pool sizing for packet staging memory.
	PoolBlockSize       ByteSize `yaml:"pool-block-size"`
	PoolMaxBlockSize    ByteSize `yaml:"pool-max-block-size"`
	PoolMaxFreePerClass int      `yaml:"pool-max-free-per-class"`

	// Platform selects the errno flavor reported at the socket boundary:
	// "linux", "darwin", or empty for the build target's own.
	Platform string `yaml:"platform"`

	// LogLevel is the minimum level forwarded to a host log sink.
	LogLevel string `yaml:"log-level"`
}

// ParseConfig decodes a YAML document into a Config and applies defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MTU <= 0 {
		c.MTU = 1500
	}
	if c.PoolBlockSize <= 0 {
		c.PoolBlockSize = memory.DefaultPoolChunkSize
	}
	if c.PoolMaxBlockSize <= 0 {
		c.PoolMaxBlockSize = memory.DefaultPoolMaxChunkSize
	}
	if c.PoolMaxFreePerClass <= 0 {
		c.PoolMaxFreePerClass = 32
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.PoolMaxBlockSize < c.PoolBlockSize {
		return fmt.Errorf("pool-max-block-size %d below pool-block-size %d",
			c.PoolMaxBlockSize, c.PoolBlockSize)
	}
	switch c.Platform {
	case "", "linux", "darwin":
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}
	if _, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	if c.IPv4Address != "" {
		if _, err := netip.ParseAddr(c.IPv4Address); err != nil {
			return fmt.Errorf("ipv4-address: %w", err)
		}
	}
	for _, a := range c.IPv6Addresses {
		if _, err := netip.ParseAddr(a); err != nil {
			return fmt.Errorf("ipv6-addresses: %w", err)
		}
	}
	return nil
}

// level returns the parsed minimum log level. validate has already refused
// anything unparseable.
func (c *Config) level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (c *Config) platform() option.Platform {
	switch c.Platform {
	case "linux":
		return option.PlatformLinux
	case "darwin":
		return option.PlatformDarwin
	}
	return option.DefaultPlatform()
}
