// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/go-zynq/xmon/internal/mmap"
	"github.com/go-zynq/xmon/internal/regs"
	"github.com/go-zynq/xmon/sysmon"
)

// fakeDMA emulates the causal behavior of the DMA register file:
// writes land in a plain memory image and may trigger a hook emulating
// what the hardware would do in response.
type fakeDMA struct {
	mem     []byte
	onWrite func(f *fakeDMA, off int64, v uint32)
}

func newFakeDMA() *fakeDMA {
	f := &fakeDMA{mem: make([]byte, regs.DMA_SPAN)}
	f.set(regs.DMA_MM2S_OFFSET+regs.DMA_SR_OFFSET, regs.DMA_SR_HALTED)
	f.set(regs.DMA_S2MM_OFFSET+regs.DMA_SR_OFFSET, regs.DMA_SR_HALTED)
	return f
}

func (f *fakeDMA) get(off int64) uint32 {
	return binary.LittleEndian.Uint32(f.mem[off:])
}

func (f *fakeDMA) set(off int64, v uint32) {
	binary.LittleEndian.PutUint32(f.mem[off:], v)
}

func (f *fakeDMA) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, f.mem[off:]), nil
}

func (f *fakeDMA) WriteAt(p []byte, off int64) (int, error) {
	n := copy(f.mem[off:], p)
	if f.onWrite != nil && len(p) == 4 {
		f.onWrite(f, off, binary.LittleEndian.Uint32(p))
	}
	return n, nil
}

// rig holds a device wired to fake hardware.
type rig struct {
	dev *Device
	dma *fakeDMA
	raw []byte // backing of the DMA receive buffer
	out *bytes.Buffer
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()

	var (
		sys = mmap.Wrap(make([]byte, regs.SYSMON_SPAN))
		dma = newFakeDMA()
		raw = make([]byte, MaxPacketLength)
		out = new(bytes.Buffer)
	)

	cfg := newConfig()
	cfg.out = out
	cfg.daq.interval = 1 * time.Millisecond
	cfg.daq.timeout = 10 * time.Millisecond
	for _, opt := range opts {
		opt(&cfg)
	}

	dev, err := newDeviceFrom(sys, dma, mmap.Wrap(raw), cfg)
	if err != nil {
		t.Fatalf("could not create device: %+v", err)
	}
	dev.msg = log.New(io.Discard, "acq: ", 0)

	return &rig{dev: dev, dma: dma, raw: raw, out: out}
}

// completing self-clears the reset bit and, on a transfer trigger,
// deposits samples into the receive buffer before flagging the channel
// idle.
func (r *rig) completing(samples []uint16) func(f *fakeDMA, off int64, v uint32) {
	return func(f *fakeDMA, off int64, v uint32) {
		switch off {
		case regs.DMA_S2MM_OFFSET + regs.DMA_CR_OFFSET:
			if v&regs.DMA_CR_RESET != 0 {
				f.set(regs.DMA_MM2S_OFFSET+regs.DMA_CR_OFFSET, 0)
				f.set(regs.DMA_S2MM_OFFSET+regs.DMA_CR_OFFSET, 0)
				f.set(regs.DMA_MM2S_OFFSET+regs.DMA_SR_OFFSET, regs.DMA_SR_HALTED)
				f.set(regs.DMA_S2MM_OFFSET+regs.DMA_SR_OFFSET, regs.DMA_SR_HALTED)
			}
			if v&regs.DMA_CR_RUNSTOP != 0 {
				sr := f.get(regs.DMA_S2MM_OFFSET + regs.DMA_SR_OFFSET)
				f.set(regs.DMA_S2MM_OFFSET+regs.DMA_SR_OFFSET, sr&^uint32(regs.DMA_SR_HALTED))
			}
		case regs.DMA_S2MM_OFFSET + regs.DMA_BUFFLEN_OFFSET:
			for i, s := range samples {
				binary.LittleEndian.PutUint16(r.raw[2*i:], s)
			}
			f.set(regs.DMA_S2MM_OFFSET+regs.DMA_SR_OFFSET, regs.DMA_SR_IDLE)
		}
	}
}

func TestDeviceConfigure(t *testing.T) {
	r := newRig(t)

	err := r.dev.Configure()
	if err != nil {
		t.Fatalf("could not configure device: %+v", err)
	}

	if got, want := r.dev.sys.SequencerMode(), sysmon.SeqModeContinuous; got != want {
		t.Fatalf("invalid sequencer mode: got=%v, want=%v", got, want)
	}
	if got, want := r.dev.sys.SeqChanEnables(), uint32(sysmon.ChanVPVN); got != want {
		t.Fatalf("invalid channel enables: got=0x%x, want=0x%x", got, want)
	}
	if got, want := r.dev.sys.ClkDivisor(), uint8(32); got != want {
		t.Fatalf("invalid clock divisor: got=%d, want=%d", got, want)
	}
	if got, want := r.dev.sys.AlarmEnables(), uint32(0); got != want {
		t.Fatalf("invalid alarm enables: got=0x%x, want=0x%x", got, want)
	}

	// re-running the configuration must not change the hardware state.
	err = r.dev.Configure()
	if err != nil {
		t.Fatalf("could not re-configure device: %+v", err)
	}
	if got, want := r.dev.sys.SequencerMode(), sysmon.SeqModeContinuous; got != want {
		t.Fatalf("invalid sequencer mode after re-configure: got=%v, want=%v", got, want)
	}
}

func TestDeviceCycleNotConfigured(t *testing.T) {
	r := newRig(t)
	err := r.dev.cycle()
	if err == nil {
		t.Fatalf("expected an error for a cycle without configuration")
	}
	if got, want := err.Error(), "acq: device not configured"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}
}

func TestDeviceCycle(t *testing.T) {
	r := newRig(t, WithSamples(4))

	samples := []uint16{0, 655, 32768, 65535}
	r.dma.onWrite = r.completing(samples)

	// stale data must never leak into a report: the decoded values
	// must be the ones deposited by the transfer.
	for i := range r.raw {
		r.raw[i] = 0xff
	}

	err := r.dev.Configure()
	if err != nil {
		t.Fatalf("could not configure device: %+v", err)
	}
	err = r.dev.Initialize()
	if err != nil {
		t.Fatalf("could not initialize device: %+v", err)
	}

	err = r.dev.cycle()
	if err != nil {
		t.Fatalf("could not run cycle: %+v", err)
	}
	if got, want := r.dev.Cycles(), 1; got != want {
		t.Fatalf("invalid cycle count: got=%d, want=%d", got, want)
	}

	want := strings.Join([]string{
		"0.000 volts",
		"0.009 volts",
		"0.500 volts",
		"0.999 volts",
		endOfReport,
	}, "\r\n") + "\r\n"
	if got := r.out.String(); got != want {
		t.Fatalf("invalid report:\ngot= %q\nwant=%q", got, want)
	}

	// transfer registers must carry the buffer address and length.
	if got, want := r.dma.get(regs.DMA_S2MM_OFFSET+regs.DMA_DSTLO_OFFSET), uint32(regs.DMA_RX_BUFFER_ADDR); got != want {
		t.Fatalf("invalid destination address: got=0x%x, want=0x%x", got, want)
	}
	if got, want := r.dma.get(regs.DMA_S2MM_OFFSET+regs.DMA_BUFFLEN_OFFSET), uint32(MaxPacketLength); got != want {
		t.Fatalf("invalid transfer length: got=%d, want=%d", got, want)
	}
}

func TestDeviceCycleTimeout(t *testing.T) {
	r := newRig(t)
	// reset self-clears but transfers never complete.
	base := r.completing(nil)
	r.dma.onWrite = func(f *fakeDMA, off int64, v uint32) {
		if off == regs.DMA_S2MM_OFFSET+regs.DMA_BUFFLEN_OFFSET {
			return
		}
		base(f, off, v)
	}

	err := r.dev.Configure()
	if err != nil {
		t.Fatalf("could not configure device: %+v", err)
	}
	err = r.dev.Initialize()
	if err != nil {
		t.Fatalf("could not initialize device: %+v", err)
	}

	err = r.dev.cycle()
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if !strings.Contains(err.Error(), "transfer did not complete") {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := r.out.Len(), 0; got != want {
		t.Fatalf("report written for a failed cycle: %q", r.out.String())
	}
	if got, want := r.dev.Cycles(), 0; got != want {
		t.Fatalf("invalid cycle count: got=%d, want=%d", got, want)
	}
}

func TestDeviceCycleBusy(t *testing.T) {
	r := newRig(t)
	r.dma.onWrite = r.completing(nil)

	err := r.dev.Configure()
	if err != nil {
		t.Fatalf("could not configure device: %+v", err)
	}
	err = r.dev.Initialize()
	if err != nil {
		t.Fatalf("could not initialize device: %+v", err)
	}

	// engine stuck mid-transfer: neither halted nor idle.
	r.dma.set(regs.DMA_S2MM_OFFSET+regs.DMA_SR_OFFSET, 0)

	err = r.dev.cycle()
	if err == nil {
		t.Fatalf("expected an initiation error")
	}
	if !strings.Contains(err.Error(), "could not start transfer") {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := r.out.Len(), 0; got != want {
		t.Fatalf("report written for a failed cycle: %q", r.out.String())
	}
}

func TestDeviceRun(t *testing.T) {
	r := newRig(t, WithSamples(2))
	r.dma.onWrite = r.completing([]uint16{32768, 32768})

	stop := make(chan struct{})
	errc := make(chan error)
	go func() { errc <- r.dev.Run(stop) }()

	time.Sleep(50 * time.Millisecond)
	close(stop)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("could not run DAQ: %+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("DAQ loop did not stop")
	}

	if r.dev.Cycles() == 0 {
		t.Fatalf("no acquisition cycle completed")
	}
	report := r.out.String()
	if !strings.Contains(report, "0.500 volts\r\n") {
		t.Fatalf("invalid report: %q", report)
	}
	if !strings.Contains(report, endOfReport+"\r\n") {
		t.Fatalf("missing end-of-report marker: %q", report)
	}
}

func TestDeviceRunMaxFailures(t *testing.T) {
	r := newRig(t, WithMaxFailures(2), WithTimeout(1*time.Millisecond))
	// reset self-clears but transfers never complete.
	base := r.completing(nil)
	r.dma.onWrite = func(f *fakeDMA, off int64, v uint32) {
		if off == regs.DMA_S2MM_OFFSET+regs.DMA_BUFFLEN_OFFSET {
			return
		}
		base(f, off, v)
	}

	stop := make(chan struct{})
	defer close(stop)

	err := r.dev.Run(stop)
	if err == nil {
		t.Fatalf("expected the DAQ loop to give up")
	}
	if !strings.Contains(err.Error(), "consecutive cycle failures") {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestVoltageOf(t *testing.T) {
	for _, tc := range []struct {
		raw  uint16
		want float64
	}{
		{raw: 0, want: 0},
		{raw: 32768, want: 0.5},
		{raw: 16384, want: 0.25},
	} {
		t.Run(fmt.Sprint(tc.raw), func(t *testing.T) {
			if got := VoltageOf(tc.raw); got != tc.want {
				t.Fatalf("invalid voltage: got=%v, want=%v", got, tc.want)
			}
		})
	}
}
