// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes the on-disk configuration of the DAQ.
package config // import "github.com/go-zynq/xmon/internal/config"

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-zynq/xmon/internal/regs"
)

type Config struct {
	Daq DaqConfig `yaml:"daq"`
}

type DaqConfig struct {
	Devmem string       `yaml:"devmem"`
	Buffer BufferConfig `yaml:"buffer"`
	Seq    SeqConfig    `yaml:"seq"`
	Loop   LoopConfig   `yaml:"loop"`
	DB     DBConfig     `yaml:"db"`
}

type BufferConfig struct {
	Addr uint32 `yaml:"addr"` // physical address of the DMA receive buffer
}

type SeqConfig struct {
	Channels uint32 `yaml:"channels"` // sequencer channel enable mask
	ClkDiv   uint8  `yaml:"clkdiv"`   // ADC clock divisor
}

type LoopConfig struct {
	Samples    int `yaml:"samples"`     // samples reported per cycle
	IntervalMS int `yaml:"interval_ms"` // pause between cycles
	TimeoutMS  int `yaml:"timeout_ms"`  // per-transfer completion timeout
	MaxFails   int `yaml:"max_fails"`   // consecutive failures before giving up
}

type DBConfig struct {
	Name string `yaml:"name"` // calibration database, empty to disable
}

// New returns a configuration with the default acquisition settings.
func New() *Config {
	var cfg Config
	cfg.Daq.Devmem = "/dev/mem"
	cfg.Daq.Buffer.Addr = regs.DMA_RX_BUFFER_ADDR
	cfg.Daq.Seq.Channels = regs.SYSMON_SEQ_CH_VPVN
	cfg.Daq.Seq.ClkDiv = 32
	cfg.Daq.Loop.Samples = 100
	cfg.Daq.Loop.IntervalMS = 500
	cfg.Daq.Loop.TimeoutMS = 1000
	cfg.Daq.Loop.MaxFails = 10
	return &cfg
}

// Load reads the configuration from fname on top of the defaults.
func Load(fname string) (*Config, error) {
	raw, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("config: could not read %q: %w", fname, err)
	}

	cfg := New()
	err = yaml.Unmarshal(raw, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: could not parse %q: %w", fname, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("config: invalid configuration %q: %w", fname, err)
	}

	return cfg, nil
}

// Validate checks the configuration describes a runnable acquisition.
// It does not mutate the configuration.
func (cfg *Config) Validate() error {
	daq := cfg.Daq
	if daq.Devmem == "" {
		return fmt.Errorf("config: missing memory device")
	}
	if daq.Seq.Channels == 0 {
		return fmt.Errorf("config: no sequencer channel enabled")
	}
	if daq.Loop.Samples <= 0 || daq.Loop.Samples > regs.MAX_PACKET_LENGTH/2 {
		return fmt.Errorf("config: invalid number of samples %d", daq.Loop.Samples)
	}
	if daq.Loop.IntervalMS <= 0 {
		return fmt.Errorf("config: invalid cycle interval %dms", daq.Loop.IntervalMS)
	}
	if daq.Loop.TimeoutMS <= 0 {
		return fmt.Errorf("config: invalid transfer timeout %dms", daq.Loop.TimeoutMS)
	}
	if daq.Loop.MaxFails <= 0 {
		return fmt.Errorf("config: invalid failure budget %d", daq.Loop.MaxFails)
	}
	return nil
}
