// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sysmon drives the XADC system monitor, the analog acquisition
// front-end of the DAQ.
package sysmon // import "github.com/go-zynq/xmon/sysmon"

import (
	"errors"

	"github.com/go-zynq/xmon/internal/regs"
)

// ErrDeviceNotFound is returned when no system monitor is described by
// the hardware design for the requested device ID.
var ErrDeviceNotFound = errors.New("sysmon: device not found")

// SeqMode enumerates the operating modes of the channel sequencer.
type SeqMode uint32

const (
	SeqModeSafe       SeqMode = regs.SYSMON_SEQ_MODE_SAFE       // quiescent, default mode
	SeqModeOnePass    SeqMode = regs.SYSMON_SEQ_MODE_ONEPASS    // one pass through the sequence
	SeqModeContinuous SeqMode = regs.SYSMON_SEQ_MODE_CONTINPASS // continuous channel sequencing
	SeqModeSingleChan SeqMode = regs.SYSMON_SEQ_MODE_SINGCHAN   // single channel, no sequencing
)

func (m SeqMode) String() string {
	switch m {
	case SeqModeSafe:
		return "safe"
	case SeqModeOnePass:
		return "one-pass"
	case SeqModeContinuous:
		return "continuous"
	case SeqModeSingleChan:
		return "single-channel"
	}
	return "invalid"
}

// Channel-enable masks for SetSeqChanEnables.
const (
	ChanVPVN = regs.SYSMON_SEQ_CH_VPVN // VP/VN dedicated analog inputs
	ChanTemp = regs.SYSMON_SEQ_CH_TEMP // on-chip temperature
)

// Config describes a system monitor instance of the hardware design.
type Config struct {
	ID       uint32
	BaseAddr int64
	Span     int
}

var configTable = []Config{
	{ID: 0, BaseAddr: regs.SYSMON_BASE, Span: regs.SYSMON_SPAN},
}

// LookupConfig returns the configuration descriptor of the system
// monitor with the given device ID.
func LookupConfig(id uint32) (Config, error) {
	for _, cfg := range configTable {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return Config{}, ErrDeviceNotFound
}
