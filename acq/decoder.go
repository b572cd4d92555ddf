// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// endOfReport marks the end of one decoded acquisition cycle.
const endOfReport = "********************************"

// sampleSource is the decoder's view of a DMA buffer.
type sampleSource interface {
	NumSamples() int
	Sample(i int) uint16
}

// Decoder decodes raw ADC samples out of a DMA buffer and writes one
// voltage report per cycle to the underlying writer.
type Decoder struct {
	w   io.Writer
	n   int // samples reported per cycle
	err error
}

// NewDecoder creates a Decoder reporting n samples per cycle to w.
func NewDecoder(n int, w io.Writer) (*Decoder, error) {
	if n < 0 || n > MaxSamples {
		return nil, xerrors.Errorf("acq: invalid sample window %d (max %d)", n, MaxSamples)
	}
	return &Decoder{w: w, n: n}, nil
}

// Decode reads the first n samples out of buf and writes their voltage
// report, followed by the end-of-report marker.
// Samples past the window are never read.
// A write error aborts the current report only. The next call starts
// afresh.
func (dec *Decoder) Decode(buf sampleSource) error {
	dec.err = nil
	if dec.n > buf.NumSamples() {
		return xerrors.Errorf("acq: sample window %d exceeds buffer capacity %d",
			dec.n, buf.NumSamples(),
		)
	}
	for i := 0; i < dec.n; i++ {
		v := VoltageOf(buf.Sample(i))
		ip := int(v)
		frac := int((v - float64(ip)) * 1000)
		dec.printf("%d.%03d volts\r\n", ip, frac)
	}
	dec.printf("%s\r\n", endOfReport)

	if dec.err != nil {
		return xerrors.Errorf("acq: could not write voltage report: %w", dec.err)
	}
	return nil
}

func (dec *Decoder) printf(format string, args ...interface{}) {
	if dec.err != nil {
		return
	}
	_, dec.err = fmt.Fprintf(dec.w, format, args...)
}
