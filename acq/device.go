// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-zynq/xmon/axidma"
	"github.com/go-zynq/xmon/internal/mmap"
	"github.com/go-zynq/xmon/sysmon"
)

// Device orchestrates the acquisition pipeline: the XADC sequencer on
// one side, the DMA engine and its receive buffer on the other.
type Device struct {
	msg *log.Logger
	cfg config
	err error

	mem struct {
		fd  *os.File
		sys *mmap.Handle
		dma *mmap.Handle
		rx  *mmap.Handle
	}

	sys *sysmon.Device
	dma *axidma.Device
	buf *Buffer
	dec *Decoder

	configured bool

	daq struct {
		cycles int // completed acquisition cycles
		fails  int // consecutive failed cycles
	}
}

// NewDevice maps the system monitor, the DMA engine and the receive
// buffer through the provided memory device (usually /dev/mem) and
// returns a ready-to-configure acquisition device.
func NewDevice(devmem string, opts ...Option) (*Device, error) {
	mem, err := os.OpenFile(devmem, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("acq: could not open %q: %w", devmem, err)
	}
	defer func() {
		if err != nil {
			_ = mem.Close()
		}
	}()

	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	syscfg, err := sysmon.LookupConfig(0)
	if err != nil {
		return nil, fmt.Errorf("acq: could not lookup system monitor: %w", err)
	}
	dmacfg, err := axidma.LookupConfig(0)
	if err != nil {
		return nil, fmt.Errorf("acq: could not lookup DMA engine: %w", err)
	}

	sysm, err := mmap.Map(mem, syscfg.BaseAddr, syscfg.Span)
	if err != nil {
		return nil, fmt.Errorf("acq: could not map system monitor registers: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sysm.Close()
		}
	}()

	dmam, err := mmap.Map(mem, dmacfg.BaseAddr, dmacfg.Span)
	if err != nil {
		return nil, fmt.Errorf("acq: could not map DMA registers: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dmam.Close()
		}
	}()

	rx, err := mmap.Map(mem, int64(cfg.buf.addr), cfg.buf.size)
	if err != nil {
		return nil, fmt.Errorf("acq: could not map DMA receive buffer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = rx.Close()
		}
	}()

	dev, err := newDeviceFrom(sysm, dmam, rx, cfg)
	if err != nil {
		return nil, err
	}
	dev.mem.fd = mem
	dev.mem.sys = sysm
	dev.mem.dma = dmam
	return dev, nil
}

type rwer interface {
	io.ReaderAt
	io.WriterAt
}

func newDeviceFrom(sysm, dmam rwer, rx *mmap.Handle, cfg config) (*Device, error) {
	msg := log.New(os.Stdout, "acq: ", 0)
	dev := &Device{
		msg: msg,
		cfg: cfg,
	}
	dev.mem.rx = rx

	dev.sys = sysmon.New(sysm, msg)
	dev.dma = axidma.New(dmam, msg)

	buf, err := NewBuffer(rx)
	if err != nil {
		return nil, fmt.Errorf("acq: could not create DMA buffer view: %w", err)
	}
	dev.buf = buf

	dec, err := NewDecoder(cfg.daq.samples, cfg.out)
	if err != nil {
		return nil, fmt.Errorf("acq: could not create decoder: %w", err)
	}
	dev.dec = dec

	return dev, nil
}

// Err returns the first error that tainted the device.
func (dev *Device) Err() error { return dev.err }

// Cycles returns the number of completed acquisition cycles.
func (dev *Device) Cycles() int { return dev.daq.cycles }

// Configure programs the XADC channel sequencer: the sequencer is
// parked in safe mode, alarms are masked, the channel enables and the
// ADC clock divisor are set, and the sequencer is finally switched to
// continuous mode.
// Configure is idempotent: re-running it yields the same hardware
// state.
func (dev *Device) Configure() error {
	err := dev.sys.SetSequencerMode(sysmon.SeqModeSafe)
	if err != nil {
		return fmt.Errorf("acq: could not park sequencer in safe mode: %w", err)
	}

	err = dev.sys.SetAlarmEnables(dev.cfg.seq.alarms)
	if err != nil {
		return fmt.Errorf("acq: could not set alarm enables: %w", err)
	}

	err = dev.sys.SetSeqChanEnables(dev.cfg.seq.chans)
	if err != nil {
		return fmt.Errorf("acq: could not set sequencer channels: %w", err)
	}

	err = dev.sys.SetClkDivisor(dev.cfg.seq.clkdiv)
	if err != nil {
		return fmt.Errorf("acq: could not set ADC clock divisor: %w", err)
	}

	err = dev.sys.SetSequencerMode(sysmon.SeqModeContinuous)
	if err != nil {
		return fmt.Errorf("acq: could not start continuous sequencing: %w", err)
	}

	dev.configured = true
	return nil
}

// Initialize resets the DMA engine and disables its interrupts on both
// channels. Completion is polled, not interrupt driven.
func (dev *Device) Initialize() error {
	err := dev.dma.Reset(dev.cfg.daq.timeout)
	if err != nil {
		return fmt.Errorf("acq: could not reset DMA engine: %w", err)
	}

	for _, dir := range []axidma.Direction{axidma.DevToMem, axidma.MemToDev} {
		err = dev.dma.IntrDisable(dir)
		if err != nil {
			return fmt.Errorf("acq: could not disable %v interrupts: %w", dir, err)
		}
	}
	return nil
}

// cycle runs one acquisition cycle: trigger a transfer, wait for its
// completion, synchronize the buffer and decode the samples.
func (dev *Device) cycle() error {
	if !dev.configured {
		return fmt.Errorf("acq: device not configured")
	}

	err := dev.dma.SimpleTransfer(dev.cfg.buf.addr, dev.cfg.buf.size, axidma.DevToMem)
	if err != nil {
		return fmt.Errorf("acq: could not start transfer: %w", err)
	}

	err = dev.dma.WaitDone(axidma.DevToMem, dev.cfg.daq.timeout)
	if err != nil {
		return fmt.Errorf("acq: transfer did not complete: %w", err)
	}

	err = dev.buf.Sync()
	if err != nil {
		return fmt.Errorf("acq: could not sync receive buffer: %w", err)
	}

	err = dev.dec.Decode(dev.buf)
	if err != nil {
		return fmt.Errorf("acq: could not decode samples: %w", err)
	}

	dev.daq.cycles++
	return nil
}

// Run configures and initializes the device, then repeatedly runs
// acquisition cycles until stop is closed.
// A failing cycle is logged and skipped; too many consecutive failures
// abort the loop.
func (dev *Device) Run(stop <-chan struct{}) error {
	err := dev.Configure()
	if err != nil {
		return fmt.Errorf("acq: could not configure device: %w", err)
	}

	err = dev.Initialize()
	if err != nil {
		return fmt.Errorf("acq: could not initialize device: %w", err)
	}

	for {
		select {
		case <-stop:
			dev.msg.Printf("stopping acquisition after %d cycles...", dev.daq.cycles)
			return nil
		default:
		}

		err := dev.cycle()
		switch {
		case err == nil:
			dev.daq.fails = 0
		default:
			dev.daq.fails++
			dev.msg.Printf("cycle failed (%d/%d): %+v",
				dev.daq.fails, dev.cfg.daq.maxFails, err,
			)
			if dev.daq.fails >= dev.cfg.daq.maxFails {
				return fmt.Errorf("acq: %d consecutive cycle failures: %w",
					dev.daq.fails, err,
				)
			}
		}

		select {
		case <-stop:
			dev.msg.Printf("stopping acquisition after %d cycles...", dev.daq.cycles)
			return nil
		case <-time.After(dev.cfg.daq.interval):
		}
	}
}

// DumpRegisters writes the register state of the system monitor and
// the DMA engine to w.
func (dev *Device) DumpRegisters(w io.Writer) error {
	err := dev.sys.DumpRegisters(w)
	if err != nil {
		return fmt.Errorf("acq: could not dump system monitor registers: %w", err)
	}
	err = dev.dma.DumpRegisters(w)
	if err != nil {
		return fmt.Errorf("acq: could not dump DMA registers: %w", err)
	}
	return nil
}

// Close releases the register and buffer mappings.
func (dev *Device) Close() error {
	var first error
	for _, h := range []*mmap.Handle{dev.mem.rx, dev.mem.dma, dev.mem.sys} {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil && first == nil {
			first = fmt.Errorf("acq: could not unmap region: %w", err)
		}
	}
	if dev.mem.fd != nil {
		if err := dev.mem.fd.Close(); err != nil && first == nil {
			first = fmt.Errorf("acq: could not close memory device: %w", err)
		}
	}
	return first
}
