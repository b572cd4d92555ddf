// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap maps hardware registers and DMA-visible memory regions
// into the process address space.
package mmap // import "github.com/go-zynq/xmon/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle provides random access to a region of memory, either a real
// mmap'd window on /dev/mem or a plain byte slice standing in for one.
type Handle struct {
	data   []byte
	mapped bool
}

// Map maps span bytes of f, starting at the physical address base, into
// the process address space.
func Map(f *os.File, base int64, span int) (*Handle, error) {
	data, err := unix.Mmap(
		int(f.Fd()),
		base, span,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map 0x%x (+0x%x): %w", base, span, err)
	}
	if data == nil || len(data) != span {
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(data))
	}
	return HandleFrom(data), nil
}

// HandleFrom wraps an mmap'd region obtained from unix.Mmap.
func HandleFrom(data []byte) *Handle {
	h := &Handle{data: data, mapped: true}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h
}

// Wrap wraps a plain in-memory region. Sync and Close are no-ops on the
// returned handle; it stands in for a mapped region in tests.
func Wrap(data []byte) *Handle {
	return &Handle{data: data}
}

// Close unmaps the handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	if !h.mapped {
		return nil
	}
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(data)
}

// Sync makes the CPU view of the region coherent with memory written
// behind its back, such as the destination of a completed DMA transfer.
// It must be called before any such data is interpreted.
func (h *Handle) Sync() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return errClosed
	}
	if !h.mapped {
		return nil
	}
	err := unix.Msync(h.data, unix.MS_SYNC|unix.MS_INVALIDATE)
	if err != nil {
		return fmt.Errorf("mmap: could not sync mapped region: %w", err)
	}
	return nil
}

// Len returns the length of the underlying memory region.
func (h *Handle) Len() int {
	return len(h.data)
}

// At returns the byte at index i.
func (h *Handle) At(i int) byte {
	return h.data[i]
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
