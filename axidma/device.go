// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package axidma

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-zynq/xmon/internal/regs"
)

// maxTransferLen bounds the value programmable into the transfer
// length register (23-bit length field in this design).
const maxTransferLen = 1<<23 - 1

// bank holds the per-direction register file of the engine.
type bank struct {
	cr     reg32 // control
	sr     reg32 // status
	addr   reg32 // transfer address (lower 32 bits)
	length reg32 // transfer length; writing it starts the transfer
}

// Device gives register-level access to an AXI DMA engine.
type Device struct {
	msg *log.Logger
	err error

	regs struct {
		mm2s bank
		s2mm bank
	}

	xbuf [4]byte
}

// New binds a device to the DMA register bank rw.
func New(rw rwer, msg *log.Logger) *Device {
	dev := &Device{msg: msg}

	bind := func(dir Direction) bank {
		base := dir.offset()
		return bank{
			cr:     newReg32(dev, rw, base+regs.DMA_CR_OFFSET),
			sr:     newReg32(dev, rw, base+regs.DMA_SR_OFFSET),
			addr:   newReg32(dev, rw, base+regs.DMA_DSTLO_OFFSET),
			length: newReg32(dev, rw, base+regs.DMA_BUFFLEN_OFFSET),
		}
	}
	dev.regs.mm2s = bind(MemToDev)
	dev.regs.s2mm = bind(DevToMem)

	return dev
}

func (dev *Device) readU32(r io.ReaderAt, off int64) uint32 {
	if dev.err != nil {
		return 0
	}
	_, dev.err = r.ReadAt(dev.xbuf[:4], off)
	if dev.err != nil {
		dev.err = fmt.Errorf("axidma: could not read register 0x%x: %w", off, dev.err)
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
		dev.err = fmt.Errorf("axidma: could not write register 0x%x: %w", off, dev.err)
		return
	}
}

func (dev *Device) bank(dir Direction) *bank {
	switch dir {
	case DevToMem:
		return &dev.regs.s2mm
	case MemToDev:
		return &dev.regs.mm2s
	}
	panic(fmt.Errorf("axidma: invalid direction %d", int(dir)))
}

// Err returns the first register-access error encountered by the device.
func (dev *Device) Err() error { return dev.err }

// Reset issues a soft reset of the engine and waits for its completion.
// The reset bit is self-clearing; both channels report completion.
func (dev *Device) Reset(timeout time.Duration) error {
	cr := dev.regs.s2mm.cr.r()
	dev.regs.s2mm.cr.w(cr | regs.DMA_CR_RESET)
	if dev.err != nil {
		return fmt.Errorf("axidma: could not reset engine: %w", dev.err)
	}

	deadline := time.Now().Add(timeout)
	for !dev.ResetIsDone() {
		if dev.err != nil {
			return fmt.Errorf("axidma: could not poll reset completion: %w", dev.err)
		}
		if time.Now().After(deadline) {
			return &TimeoutError{Op: "reset", Timeout: timeout}
		}
	}
	return dev.err
}

// ResetIsDone reports whether a previously issued reset has completed.
func (dev *Device) ResetIsDone() bool {
	mm2s := dev.regs.mm2s.cr.r()
	s2mm := dev.regs.s2mm.cr.r()
	return (mm2s|s2mm)&regs.DMA_CR_RESET == 0
}

// IntrDisable masks all interrupt sources of the given channel.
// The DAQ polls; it never takes a DMA interrupt.
func (dev *Device) IntrDisable(dir Direction) error {
	bank := dev.bank(dir)
	cr := bank.cr.r()
	cr &= ^uint32(regs.DMA_IRQ_ALL)
	bank.cr.w(cr)

	if dev.err != nil {
		return fmt.Errorf("axidma: could not disable %v interrupts: %w", dir, dev.err)
	}
	return nil
}

// Busy reports whether a transfer is in flight on the given channel.
func (dev *Device) Busy(dir Direction) bool {
	sr := dev.bank(dir).sr.r()
	return sr&(regs.DMA_SR_HALTED|regs.DMA_SR_IDLE) == 0
}

// SimpleTransfer starts a single transfer of n bytes to (or from) the
// physical address addr on the given channel. The call returns as soon
// as the transfer is programmed; the engine completes it on its own.
func (dev *Device) SimpleTransfer(addr uint32, n int, dir Direction) error {
	if n <= 0 || n > maxTransferLen {
		return fmt.Errorf("axidma: invalid transfer length %d", n)
	}

	bank := dev.bank(dir)
	sr := bank.sr.r()
	if dev.err != nil {
		return fmt.Errorf("axidma: could not read %v status: %w", dir, dev.err)
	}
	switch {
	case sr&(regs.DMA_SR_HALTED|regs.DMA_SR_IDLE) == 0:
		// transfer already in flight
		return &InitiationError{Status: sr}
	case sr&regs.DMA_SR_ERR_ALL != 0:
		return &InitiationError{Status: sr}
	}

	bank.addr.w(addr)
	bank.cr.w(bank.cr.r() | regs.DMA_CR_RUNSTOP)
	bank.length.w(uint32(n))

	if dev.err != nil {
		return fmt.Errorf("axidma: could not program %v transfer: %w", dir, dev.err)
	}
	return nil
}

// WaitDone busy-polls the given channel until the transfer in flight
// completes, or until timeout elapses.
func (dev *Device) WaitDone(dir Direction, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for dev.Busy(dir) {
		if dev.err != nil {
			return fmt.Errorf("axidma: could not poll %v completion: %w", dir, dev.err)
		}
		if time.Now().After(deadline) {
			return &TimeoutError{Op: fmt.Sprintf("%v transfer", dir), Timeout: timeout}
		}
	}

	sr := dev.bank(dir).sr.r()
	if dev.err != nil {
		return fmt.Errorf("axidma: could not read %v status: %w", dir, dev.err)
	}
	if sr&regs.DMA_SR_ERR_ALL != 0 {
		return &InitiationError{Status: sr}
	}
	return nil
}

// DumpRegisters writes the register file of both channels to w.
func (dev *Device) DumpRegisters(w io.Writer) error {
	fmt.Fprintf(w, "mm2s.cr=     0x%08x\n", dev.regs.mm2s.cr.r())
	fmt.Fprintf(w, "mm2s.sr=     0x%08x\n", dev.regs.mm2s.sr.r())
	fmt.Fprintf(w, "mm2s.addr=   0x%08x\n", dev.regs.mm2s.addr.r())
	fmt.Fprintf(w, "s2mm.cr=     0x%08x\n", dev.regs.s2mm.cr.r())
	fmt.Fprintf(w, "s2mm.sr=     0x%08x\n", dev.regs.s2mm.sr.r())
	fmt.Fprintf(w, "s2mm.addr=   0x%08x\n", dev.regs.s2mm.addr.r())
	fmt.Fprintf(w, "s2mm.busy=   %v\n", dev.Busy(DevToMem))
	return dev.err
}
