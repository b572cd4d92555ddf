// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysmon

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/go-zynq/xmon/internal/regs"
)

// Device gives register-level access to an XADC system monitor.
type Device struct {
	msg *log.Logger
	err error

	regs struct {
		srr reg32
		sr  reg32

		cfr0 reg32
		cfr1 reg32
		cfr2 reg32

		seq00 reg32
		seq01 reg32
	}

	xbuf [4]byte
}

// New binds a device to the system monitor register bank rw.
func New(rw rwer, msg *log.Logger) *Device {
	dev := &Device{msg: msg}

	dev.regs.srr = newReg32(dev, rw, regs.SYSMON_SRR_OFFSET)
	dev.regs.sr = newReg32(dev, rw, regs.SYSMON_SR_OFFSET)
	dev.regs.cfr0 = newReg32(dev, rw, regs.SYSMON_CFR0_OFFSET)
	dev.regs.cfr1 = newReg32(dev, rw, regs.SYSMON_CFR1_OFFSET)
	dev.regs.cfr2 = newReg32(dev, rw, regs.SYSMON_CFR2_OFFSET)
	dev.regs.seq00 = newReg32(dev, rw, regs.SYSMON_SEQ00_OFFSET)
	dev.regs.seq01 = newReg32(dev, rw, regs.SYSMON_SEQ01_OFFSET)

	return dev
}

func (dev *Device) readU32(r io.ReaderAt, off int64) uint32 {
	if dev.err != nil {
		return 0
	}
	_, dev.err = r.ReadAt(dev.xbuf[:4], off)
	if dev.err != nil {
		dev.err = fmt.Errorf("sysmon: could not read register 0x%x: %w", off, dev.err)
		return 0
	}
	return binary.LittleEndian.Uint32(dev.xbuf[:4])
}

func (dev *Device) writeU32(w io.WriterAt, off int64, v uint32) {
	if dev.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(dev.xbuf[:4], v)
	_, dev.err = w.WriteAt(dev.xbuf[:4], off)
	if dev.err != nil {
		dev.err = fmt.Errorf("sysmon: could not write register 0x%x: %w", off, dev.err)
		return
	}
}

// Err returns the first register-access error encountered by the device.
func (dev *Device) Err() error { return dev.err }

// Reset issues a software reset of the system monitor IP.
func (dev *Device) Reset() error {
	dev.regs.srr.w(regs.SYSMON_SRR_IPRST)
	if dev.err != nil {
		return fmt.Errorf("sysmon: could not reset device: %w", dev.err)
	}
	return nil
}

// SetSequencerMode switches the channel sequencer to the given mode.
// The sequencer must be in safe mode before any other sequencer state
// is reconfigured.
func (dev *Device) SetSequencerMode(mode SeqMode) error {
	cfr1 := dev.regs.cfr1.r()
	cfr1 &= ^uint32(regs.SYSMON_CFR1_SEQ_VALID_MASK)
	cfr1 |= (uint32(mode) << regs.SYSMON_CFR1_SEQ_SHIFT) & regs.SYSMON_CFR1_SEQ_VALID_MASK
	dev.regs.cfr1.w(cfr1)

	if dev.err != nil {
		return fmt.Errorf("sysmon: could not set sequencer mode %v: %w", mode, dev.err)
	}
	return nil
}

// SequencerMode returns the current mode of the channel sequencer.
func (dev *Device) SequencerMode() SeqMode {
	cfr1 := dev.regs.cfr1.r()
	return SeqMode((cfr1 & regs.SYSMON_CFR1_SEQ_VALID_MASK) >> regs.SYSMON_CFR1_SEQ_SHIFT)
}

// SetAlarmEnables enables the alarm outputs selected by mask and
// disables all others. The hardware alarm bits are active low.
func (dev *Device) SetAlarmEnables(mask uint32) error {
	cfr1 := dev.regs.cfr1.r()
	cfr1 &= ^uint32(regs.SYSMON_CFR1_ALM_VALID_MASK)
	cfr1 |= ^mask & regs.SYSMON_CFR1_ALM_VALID_MASK
	dev.regs.cfr1.w(cfr1)

	if dev.err != nil {
		return fmt.Errorf("sysmon: could not set alarm enables 0x%x: %w", mask, dev.err)
	}
	return nil
}

// AlarmEnables returns the mask of currently enabled alarm outputs.
func (dev *Device) AlarmEnables() uint32 {
	cfr1 := dev.regs.cfr1.r()
	return ^cfr1 & regs.SYSMON_CFR1_ALM_VALID_MASK
}

// SetSeqChanEnables selects the channels sampled by the sequencer.
// The lower 16 bits map to SEQ00, the upper 16 bits to SEQ01.
func (dev *Device) SetSeqChanEnables(mask uint32) error {
	dev.regs.seq00.w(mask & 0xffff)
	dev.regs.seq01.w(mask >> 16)

	if dev.err != nil {
		return fmt.Errorf("sysmon: could not set channel enables 0x%x: %w", mask, dev.err)
	}
	return nil
}

// SeqChanEnables returns the mask of channels sampled by the sequencer.
func (dev *Device) SeqChanEnables() uint32 {
	lo := dev.regs.seq00.r()
	hi := dev.regs.seq01.r()
	return lo&0xffff | hi<<16
}

// SetClkDivisor sets the ADC clock divisor. Larger divisors trade
// sample rate for conversion settling time.
func (dev *Device) SetClkDivisor(div uint8) error {
	cfr2 := dev.regs.cfr2.r()
	cfr2 &= ^uint32(regs.SYSMON_CFR2_CD_VALID_MASK)
	cfr2 |= uint32(div) << regs.SYSMON_CFR2_CD_SHIFT
	dev.regs.cfr2.w(cfr2)

	if dev.err != nil {
		return fmt.Errorf("sysmon: could not set clock divisor %d: %w", div, dev.err)
	}
	return nil
}

// ClkDivisor returns the current ADC clock divisor.
func (dev *Device) ClkDivisor() uint8 {
	cfr2 := dev.regs.cfr2.r()
	return uint8((cfr2 & regs.SYSMON_CFR2_CD_VALID_MASK) >> regs.SYSMON_CFR2_CD_SHIFT)
}

// DumpRegisters writes the configuration registers of the device to w.
func (dev *Device) DumpRegisters(w io.Writer) error {
	fmt.Fprintf(w, "sysmon.sr=    0x%08x\n", dev.regs.sr.r())
	fmt.Fprintf(w, "sysmon.cfr0=  0x%08x\n", dev.regs.cfr0.r())
	fmt.Fprintf(w, "sysmon.cfr1=  0x%08x\n", dev.regs.cfr1.r())
	fmt.Fprintf(w, "sysmon.cfr2=  0x%08x\n", dev.regs.cfr2.r())
	fmt.Fprintf(w, "sysmon.seq00= 0x%08x\n", dev.regs.seq00.r())
	fmt.Fprintf(w, "sysmon.seq01= 0x%08x\n", dev.regs.seq01.r())
	fmt.Fprintf(w, "sysmon.mode=  %v\n", dev.SequencerMode())
	return dev.err
}
