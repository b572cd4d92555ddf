// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysmon

import (
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/go-zynq/xmon/internal/mmap"
	"github.com/go-zynq/xmon/internal/regs"
)

func TestLookupConfig(t *testing.T) {
	cfg, err := LookupConfig(0)
	if err != nil {
		t.Fatalf("could not lookup config: %+v", err)
	}
	if got, want := cfg.BaseAddr, int64(regs.SYSMON_BASE); got != want {
		t.Fatalf("invalid base address: got=0x%x, want=0x%x", got, want)
	}

	_, err = LookupConfig(42)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("invalid lookup error: got=%+v, want=%+v", err, ErrDeviceNotFound)
	}
}

func TestDevice(t *testing.T) {
	var (
		mem = mmap.Wrap(make([]byte, regs.SYSMON_SPAN))
		msg = log.New(io.Discard, "sysmon: ", 0)
		dev = New(mem, msg)
	)

	configure := func() {
		t.Helper()
		for _, f := range []func() error{
			func() error { return dev.SetSequencerMode(SeqModeSafe) },
			func() error { return dev.SetAlarmEnables(0x0) },
			func() error { return dev.SetSeqChanEnables(ChanVPVN) },
			func() error { return dev.SetClkDivisor(32) },
			func() error { return dev.SetSequencerMode(SeqModeContinuous) },
		} {
			if err := f(); err != nil {
				t.Fatalf("could not configure device: %+v", err)
			}
		}
	}
	configure()

	if got, want := dev.SequencerMode(), SeqModeContinuous; got != want {
		t.Fatalf("invalid sequencer mode: got=%v, want=%v", got, want)
	}
	if got, want := dev.AlarmEnables(), uint32(0); got != want {
		t.Fatalf("invalid alarm enables: got=0x%x, want=0x%x", got, want)
	}
	if got, want := dev.SeqChanEnables(), uint32(ChanVPVN); got != want {
		t.Fatalf("invalid channel enables: got=0x%x, want=0x%x", got, want)
	}
	if got, want := dev.ClkDivisor(), uint8(32); got != want {
		t.Fatalf("invalid clock divisor: got=%d, want=%d", got, want)
	}

	// alarm bits are active low in CFR1.
	raw := make([]byte, 4)
	_, err := mem.ReadAt(raw, regs.SYSMON_CFR1_OFFSET)
	if err != nil {
		t.Fatalf("could not read CFR1: %+v", err)
	}
	cfr1 := binary.LittleEndian.Uint32(raw)
	if got, want := cfr1&regs.SYSMON_CFR1_ALM_VALID_MASK, uint32(regs.SYSMON_CFR1_ALM_VALID_MASK); got != want {
		t.Fatalf("invalid CFR1 alarm bits: got=0x%x, want=0x%x", got, want)
	}

	// reconfiguring must leave the sequencer state unchanged.
	snap := func() [3]uint32 {
		return [3]uint32{
			uint32(dev.SequencerMode()),
			dev.SeqChanEnables(),
			uint32(dev.ClkDivisor()),
		}
	}
	before := snap()
	configure()
	if got, want := snap(), before; got != want {
		t.Fatalf("configuration not idempotent: got=%v, want=%v", got, want)
	}

	if err := dev.Err(); err != nil {
		t.Fatalf("unexpected device error: %+v", err)
	}

	err = dev.Reset()
	if err != nil {
		t.Fatalf("could not reset device: %+v", err)
	}
	_, err = mem.ReadAt(raw, regs.SYSMON_SRR_OFFSET)
	if err != nil {
		t.Fatalf("could not read SRR: %+v", err)
	}
	if got, want := binary.LittleEndian.Uint32(raw), uint32(regs.SYSMON_SRR_IPRST); got != want {
		t.Fatalf("invalid SRR value: got=0x%x, want=0x%x", got, want)
	}
}

type badRW struct {
	err error
}

func (rw badRW) ReadAt(p []byte, off int64) (int, error)  { return 0, rw.err }
func (rw badRW) WriteAt(p []byte, off int64) (int, error) { return 0, rw.err }

func TestDeviceStickyError(t *testing.T) {
	var (
		werr = errors.New("boom")
		msg  = log.New(io.Discard, "sysmon: ", 0)
		dev  = New(badRW{err: werr}, msg)
	)

	err := dev.SetSequencerMode(SeqModeSafe)
	if err == nil || !errors.Is(err, werr) {
		t.Fatalf("invalid error: %+v", err)
	}

	// the first error sticks.
	if err := dev.Err(); !errors.Is(err, werr) {
		t.Fatalf("invalid sticky error: %+v", err)
	}
	if err := dev.SetClkDivisor(32); !errors.Is(err, werr) {
		t.Fatalf("invalid follow-up error: %+v", err)
	}
}
