// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package caldb

import (
	"fmt"
	"time"
)

// Settings holds the acquisition settings of a board: the sequencer
// channel enables, the ADC clock divisor and the shape of the report
// loop.
type Settings struct {
	ID         int32  `json:"identifier"`
	BoardID    uint32 `json:"board_id"`
	Channels   uint32 `json:"channels"`
	ClkDiv     uint8  `json:"clkdiv"`
	Samples    int32  `json:"samples"`
	IntervalMS int32  `json:"interval_ms"`
	TimeoutMS  int32  `json:"timeout_ms"`
}

// Interval returns the pause between acquisition cycles.
func (set Settings) Interval() time.Duration {
	return time.Duration(set.IntervalMS) * time.Millisecond
}

// Timeout returns the per-transfer completion timeout.
func (set Settings) Timeout() time.Duration {
	return time.Duration(set.TimeoutMS) * time.Millisecond
}

// Validate checks the settings describe a runnable acquisition.
func (set Settings) Validate() error {
	if set.Channels == 0 {
		return fmt.Errorf("caldb: no sequencer channel enabled")
	}
	if set.Samples <= 0 {
		return fmt.Errorf("caldb: invalid number of samples %d", set.Samples)
	}
	if set.IntervalMS <= 0 {
		return fmt.Errorf("caldb: invalid cycle interval %dms", set.IntervalMS)
	}
	if set.TimeoutMS <= 0 {
		return fmt.Errorf("caldb: invalid transfer timeout %dms", set.TimeoutMS)
	}
	return nil
}
