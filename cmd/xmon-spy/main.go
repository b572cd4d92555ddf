// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xmon-spy spies the content of the system monitor and DMA
// registers.
package main // import "github.com/go-zynq/xmon/cmd/xmon-spy"

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-zynq/xmon/acq"
)

func main() {
	dev, err := acq.NewDevice("/dev/mem")
	if err != nil {
		log.Fatalf("could not open device: %+v", err)
	}
	defer dev.Close()

	fmt.Printf("------------------------------------------------\n")
	const layout = "2006-01-02 15:04:05 MST"
	fmt.Printf("%v\n", time.Now().Format(layout))

	err = dev.DumpRegisters(os.Stdout)
	if err != nil {
		log.Fatalf("could not dump registers: %+v", err)
	}
}
