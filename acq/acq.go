// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package acq implements the analog acquisition pipeline of the DAQ:
// it configures the XADC channel sequencer, drives one DMA transfer
// per cycle into a shared memory buffer and decodes the raw samples
// into a human readable voltage report.
package acq // import "github.com/go-zynq/xmon/acq"

import (
	"github.com/go-zynq/xmon/internal/regs"
)

const (
	// MaxPacketLength is the size in bytes of a single DMA transfer.
	MaxPacketLength = regs.MAX_PACKET_LENGTH

	// MaxSamples is the number of raw ADC samples a transfer carries.
	MaxSamples = MaxPacketLength / 2

	// DefaultSamples is the number of samples reported per cycle.
	DefaultSamples = 100
)

// VoltageOf converts a raw ADC sample to a voltage, normalized to the
// full scale of the 16-bit converter.
func VoltageOf(raw uint16) float64 {
	return float64(raw) / 65536.0
}
