// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"io"
	"os"
	"time"

	"github.com/go-zynq/xmon/internal/regs"
	"github.com/go-zynq/xmon/sysmon"
)

type config struct {
	out io.Writer

	buf struct {
		addr uint32 // physical address of the DMA receive buffer
		size int    // bytes per transfer
	}

	seq struct {
		chans  uint32 // sequencer channel enable mask
		clkdiv uint8  // ADC clock divisor
		alarms uint32 // alarm enable mask
	}

	daq struct {
		samples  int           // samples reported per cycle
		interval time.Duration // pause between cycles
		timeout  time.Duration // per-transfer completion timeout
		maxFails int           // consecutive cycle failures before giving up
	}
}

func newConfig() config {
	var cfg config
	cfg.out = os.Stdout
	cfg.buf.addr = regs.DMA_RX_BUFFER_ADDR
	cfg.buf.size = MaxPacketLength
	cfg.seq.chans = sysmon.ChanVPVN
	cfg.seq.clkdiv = 32
	cfg.seq.alarms = 0x0
	cfg.daq.samples = DefaultSamples
	cfg.daq.interval = 500 * time.Millisecond
	cfg.daq.timeout = 1 * time.Second
	cfg.daq.maxFails = 10
	return cfg
}

// Option configures an acquisition device.
type Option func(*config)

// WithOutput sets the writer voltage reports are written to.
func WithOutput(w io.Writer) Option {
	return func(cfg *config) {
		cfg.out = w
	}
}

// WithBufferAddr sets the physical address of the DMA receive buffer.
func WithBufferAddr(addr uint32) Option {
	return func(cfg *config) {
		cfg.buf.addr = addr
	}
}

// WithChannels sets the sequencer channel enable mask.
func WithChannels(mask uint32) Option {
	return func(cfg *config) {
		cfg.seq.chans = mask
	}
}

// WithClkDivisor sets the ADC clock divisor.
func WithClkDivisor(div uint8) Option {
	return func(cfg *config) {
		cfg.seq.clkdiv = div
	}
}

// WithSamples sets the number of samples reported per cycle.
func WithSamples(n int) Option {
	return func(cfg *config) {
		cfg.daq.samples = n
	}
}

// WithInterval sets the pause between acquisition cycles.
func WithInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.daq.interval = d
	}
}

// WithTimeout sets the completion timeout of a DMA transfer.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.daq.timeout = d
	}
}

// WithMaxFailures sets the number of consecutive cycle failures after
// which the acquisition loop gives up.
func WithMaxFailures(n int) Option {
	return func(cfg *config) {
		cfg.daq.maxFails = n
	}
}
