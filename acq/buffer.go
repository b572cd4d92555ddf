// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"golang.org/x/xerrors"

	"github.com/go-zynq/xmon/internal/mmap"
)

// Buffer is a typed view over the DMA receive buffer.
// The DMA engine writes raw bytes into the region; the decoder reads
// samples out of it as little-endian 16-bit words.
type Buffer struct {
	mem *mmap.Handle
}

// NewBuffer wraps the memory region the DMA engine transfers into.
func NewBuffer(mem *mmap.Handle) (*Buffer, error) {
	if mem == nil || mem.Len() != MaxPacketLength {
		return nil, xerrors.Errorf("acq: invalid buffer size (want %d bytes)", MaxPacketLength)
	}
	return &Buffer{mem: mem}, nil
}

// Len returns the size of the buffer in bytes.
func (buf *Buffer) Len() int { return buf.mem.Len() }

// NumSamples returns the number of raw samples the buffer holds.
func (buf *Buffer) NumSamples() int { return buf.mem.Len() / 2 }

// Sample returns the i-th raw ADC sample.
func (buf *Buffer) Sample(i int) uint16 {
	lo := uint16(buf.mem.At(2 * i))
	hi := uint16(buf.mem.At(2*i + 1))
	return lo | hi<<8
}

// Bytes returns a copy of the raw buffer contents.
func (buf *Buffer) Bytes() []byte {
	p := make([]byte, buf.mem.Len())
	_, _ = buf.mem.ReadAt(p, 0)
	return p
}

// Sync invalidates the CPU view of the buffer so that reads observe
// the data the DMA engine deposited.
// It must be called after a transfer completed and before any sample
// is read out.
func (buf *Buffer) Sync() error {
	err := buf.mem.Sync()
	if err != nil {
		return xerrors.Errorf("acq: could not sync DMA buffer: %w", err)
	}
	return nil
}
