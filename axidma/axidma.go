// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package axidma drives the AXI DMA engine moving data between the
// acquisition peripherals and main memory.
package axidma // import "github.com/go-zynq/xmon/axidma"

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-zynq/xmon/internal/regs"
)

// ErrDeviceNotFound is returned when no DMA engine is described by the
// hardware design for the requested device ID.
var ErrDeviceNotFound = errors.New("axidma: device not found")

// Direction selects one of the two transfer channels of the engine.
type Direction int

const (
	DevToMem Direction = iota // S2MM: device to memory
	MemToDev                  // MM2S: memory to device
)

func (dir Direction) String() string {
	switch dir {
	case DevToMem:
		return "dev-to-mem"
	case MemToDev:
		return "mem-to-dev"
	}
	return "invalid"
}

func (dir Direction) offset() int64 {
	switch dir {
	case DevToMem:
		return regs.DMA_S2MM_OFFSET
	case MemToDev:
		return regs.DMA_MM2S_OFFSET
	}
	panic(fmt.Errorf("axidma: invalid direction %d", int(dir)))
}

// InitiationError reports a transfer request that the engine rejected.
type InitiationError struct {
	Status uint32 // engine status register at the time of the request
}

func (e *InitiationError) Error() string {
	return fmt.Sprintf("axidma: could not initiate transfer (status=0x%08x)", e.Status)
}

// TimeoutError reports an engine operation that did not complete within
// its allotted time.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("axidma: %s did not complete (timeout=%v)", e.Op, e.Timeout)
}

// Config describes a DMA engine instance of the hardware design.
type Config struct {
	ID       uint32
	BaseAddr int64
	Span     int

	HasDevToMem bool
	HasMemToDev bool
}

var configTable = []Config{
	{
		ID:          0,
		BaseAddr:    regs.DMA_BASE,
		Span:        regs.DMA_SPAN,
		HasDevToMem: true,
		HasMemToDev: true,
	},
}

// LookupConfig returns the configuration descriptor of the DMA engine
// with the given device ID.
func LookupConfig(id uint32) (Config, error) {
	for _, cfg := range configTable {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return Config{}, ErrDeviceNotFound
}
