// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xmon-srv starts a TDAQ server exposing the analog
// acquisition pipeline, streaming voltage reports on /adc.
package main // import "github.com/go-zynq/xmon/cmd/xmon-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"

	"github.com/go-zynq/xmon/acq"
)

func main() {
	cmd := flags.New()

	log.SetPrefix("xmon-srv: ")
	log.SetFlags(0)

	dev, err := acq.NewServer("/dev/mem")
	if err != nil {
		log.Fatalf("could not create acquisition server: %+v", err)
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/adc", dev.ADC)

	srv.RunHandle(dev.Loop)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
