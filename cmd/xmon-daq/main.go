// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xmon-daq drives the analog acquisition in stand-alone mode.
package main // import "github.com/go-zynq/xmon/cmd/xmon-daq"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarm/serial"

	"github.com/go-zynq/xmon/acq"
	"github.com/go-zynq/xmon/caldb"
	"github.com/go-zynq/xmon/internal/config"
)

func main() {
	var (
		cfgFile = flag.String("cfg", "", "path to a YAML configuration file")
		oname   = flag.String("o", "", "path to the voltage report output file (default stdout)")
		tty     = flag.String("tty", "", "serial console to mirror reports to")
		baud    = flag.Int("baud", 115200, "serial console baud rate")
		setup   = flag.String("setup", "", "calibration db setup to load settings from")
	)

	log.SetPrefix("xmon-daq: ")
	log.SetFlags(0)

	flag.Parse()

	err := run(*cfgFile, *oname, *tty, *baud, *setup, make(chan os.Signal, 1))
	if err != nil {
		log.Fatalf("could not run xmon-daq: %+v", err)
	}
}

func run(cfgFile, oname, tty string, baud int, setup string, stopSig chan os.Signal) error {
	cfg := config.New()
	if cfgFile != "" {
		c, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("could not load configuration: %w", err)
		}
		cfg = c
	}

	if setup != "" {
		err := loadSettings(cfg, setup)
		if err != nil {
			return fmt.Errorf("could not load db settings: %w", err)
		}
	}

	var out io.Writer = os.Stdout
	if oname != "" {
		f, err := os.Create(oname)
		if err != nil {
			return fmt.Errorf("could not create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if tty != "" {
		port, err := serial.OpenPort(&serial.Config{Name: tty, Baud: baud})
		if err != nil {
			return fmt.Errorf("could not open serial console %q: %w", tty, err)
		}
		defer port.Close()
		out = io.MultiWriter(out, port)
	}

	dev, err := acq.NewDevice(cfg.Daq.Devmem,
		acq.WithOutput(out),
		acq.WithBufferAddr(cfg.Daq.Buffer.Addr),
		acq.WithChannels(cfg.Daq.Seq.Channels),
		acq.WithClkDivisor(cfg.Daq.Seq.ClkDiv),
		acq.WithSamples(cfg.Daq.Loop.Samples),
		acq.WithInterval(time.Duration(cfg.Daq.Loop.IntervalMS)*time.Millisecond),
		acq.WithTimeout(time.Duration(cfg.Daq.Loop.TimeoutMS)*time.Millisecond),
		acq.WithMaxFailures(cfg.Daq.Loop.MaxFails),
	)
	if err != nil {
		return fmt.Errorf("could not create acquisition device: %w", err)
	}
	defer dev.Close()

	signal.Notify(stopSig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopSig)

	stop := make(chan struct{})
	go func() {
		<-stopSig
		close(stop)
	}()

	return dev.Run(stop)
}

func loadSettings(cfg *config.Config, setup string) error {
	db, err := caldb.Open(cfg.Daq.DB.Name)
	if err != nil {
		return fmt.Errorf("could not open calibration db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	brdid, err := db.LastBoardID(ctx)
	if err != nil {
		return fmt.Errorf("could not get board id: %w", err)
	}

	set, err := db.AcqSettings(ctx, setup, brdid)
	if err != nil {
		return fmt.Errorf("could not get settings (setup=%q, board=%d): %w",
			setup, brdid, err,
		)
	}
	err = set.Validate()
	if err != nil {
		return fmt.Errorf("could not validate settings (setup=%q): %w", setup, err)
	}

	cfg.Daq.Seq.Channels = set.Channels
	cfg.Daq.Seq.ClkDiv = set.ClkDiv
	cfg.Daq.Loop.Samples = int(set.Samples)
	cfg.Daq.Loop.IntervalMS = int(set.IntervalMS)
	cfg.Daq.Loop.TimeoutMS = int(set.TimeoutMS)
	return nil
}
