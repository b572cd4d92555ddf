// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the register map of the XADC system monitor and
// of the AXI DMA engine, as laid out by the hardware design.
package regs // import "github.com/go-zynq/xmon/internal/regs"

// Physical layout of the acquisition design.
const (
	SYSMON_BASE = 0x43c00000 // AXI XADC system monitor base address
	SYSMON_SPAN = 0x10000

	DMA_BASE = 0x40400000 // AXI DMA controller base address
	DMA_SPAN = 0x10000

	DMA_RX_BUFFER_ADDR = 0x00100000 // DDR scratch region owned by the DAQ
	MAX_PACKET_LENGTH  = 512        // bytes per DMA transfer
)

// XADC system monitor register offsets.
const (
	SYSMON_SRR_OFFSET = 0x000 // software reset register
	SYSMON_SR_OFFSET  = 0x004 // status register

	SYSMON_CFR0_OFFSET = 0x300 // configuration register 0
	SYSMON_CFR1_OFFSET = 0x304 // configuration register 1
	SYSMON_CFR2_OFFSET = 0x308 // configuration register 2

	SYSMON_SEQ00_OFFSET = 0x320 // sequencer channel selection (0-31)
	SYSMON_SEQ01_OFFSET = 0x324 // sequencer channel selection (32-63)
)

// XADC system monitor register bits and masks.
const (
	SYSMON_SRR_IPRST = 0x0000000a // magic value triggering an IP reset

	SYSMON_CFR1_SEQ_VALID_MASK = 0x0000f000 // sequencer mode field
	SYSMON_CFR1_SEQ_SHIFT      = 12
	SYSMON_CFR1_ALM_VALID_MASK = 0x00000fff // alarm-enable field (active low)

	SYSMON_SEQ_MODE_SAFE       = 0x0 // default safe mode
	SYSMON_SEQ_MODE_ONEPASS    = 0x1 // one pass through the sequence
	SYSMON_SEQ_MODE_CONTINPASS = 0x2 // continuous channel sequencing
	SYSMON_SEQ_MODE_SINGCHAN   = 0x3 // single channel, no sequencing

	SYSMON_SEQ_CH_VPVN = 0x00000800 // VP/VN dedicated analog inputs
	SYSMON_SEQ_CH_TEMP = 0x00000100 // on-chip temperature
	SYSMON_SEQ_CH_AUX  = 0xffff0000 // auxiliary analog inputs (SEQ01)

	SYSMON_CFR2_CD_VALID_MASK = 0x0000ff00 // ADC clock divisor field
	SYSMON_CFR2_CD_SHIFT      = 8
)

// AXI DMA register offsets.
//
// The device-to-memory (S2MM) register bank sits at a fixed offset from
// the memory-to-device (MM2S) one; both banks share the same layout.
const (
	DMA_MM2S_OFFSET = 0x00 // memory-to-device register bank
	DMA_S2MM_OFFSET = 0x30 // device-to-memory register bank

	DMA_CR_OFFSET      = 0x00 // control register
	DMA_SR_OFFSET      = 0x04 // status register
	DMA_SRCLO_OFFSET   = 0x18 // MM2S source address (lower 32 bits)
	DMA_DSTLO_OFFSET   = 0x18 // S2MM destination address (lower 32 bits)
	DMA_BUFFLEN_OFFSET = 0x28 // transfer length, in bytes
)

// AXI DMA control register bits.
const (
	DMA_CR_RUNSTOP = 0x00000001 // run/stop
	DMA_CR_RESET   = 0x00000004 // soft reset, self-clearing

	DMA_IRQ_IOC   = 0x00001000 // completion interrupt enable
	DMA_IRQ_DELAY = 0x00002000 // delay interrupt enable
	DMA_IRQ_ERROR = 0x00004000 // error interrupt enable
	DMA_IRQ_ALL   = DMA_IRQ_IOC | DMA_IRQ_DELAY | DMA_IRQ_ERROR
)

// AXI DMA status register bits.
const (
	DMA_SR_HALTED = 0x00000001
	DMA_SR_IDLE   = 0x00000002

	DMA_SR_INT_ERR = 0x00000010 // internal error
	DMA_SR_SLV_ERR = 0x00000020 // slave error
	DMA_SR_DEC_ERR = 0x00000040 // decode error
	DMA_SR_ERR_ALL = DMA_SR_INT_ERR | DMA_SR_SLV_ERR | DMA_SR_DEC_ERR
)
