// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	tdaqlog "github.com/go-daq/tdaq/log"
)

func tdaqCtx(ctx context.Context) tdaq.Context {
	return tdaq.Context{
		Ctx: ctx,
		Msg: tdaqlog.NewMsgStream("xmon-srv", tdaqlog.LvlError, io.Discard),
	}
}

func TestServerStream(t *testing.T) {
	r := newRig(t, WithSamples(2))
	r.dma.onWrite = r.completing([]uint16{32768, 655})

	srv := newServerFrom(r.dev, r.out)
	tctx := tdaqCtx(context.Background())

	for _, tc := range []struct {
		name string
		f    func(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error
	}{
		{name: "config", f: srv.OnConfig},
		{name: "init", f: srv.OnInit},
		{name: "start", f: srv.OnStart},
	} {
		err := tc.f(tctx, nil, tdaq.Frame{})
		if err != nil {
			t.Fatalf("could not handle /%s: %+v", tc.name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error)
	go func() { errc <- srv.Loop(tdaqCtx(ctx)) }()

	var frame tdaq.Frame
	err := srv.ADC(tctx, &frame)
	if err != nil {
		t.Fatalf("could not read ADC frame: %+v", err)
	}
	want := "0.500 volts\r\n0.009 volts\r\n" + endOfReport + "\r\n"
	if got := string(frame.Body); got != want {
		t.Fatalf("invalid ADC frame:\ngot= %q\nwant=%q", got, want)
	}

	err = srv.OnStop(tctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not handle /stop: %+v", err)
	}
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("could not run server loop: %+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server loop did not stop")
	}

	err = srv.OnQuit(tctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not handle /quit: %+v", err)
	}
}

func TestServerSlowConsumer(t *testing.T) {
	r := newRig(t, WithSamples(1))
	r.dma.onWrite = r.completing([]uint16{32768})

	srv := newServerFrom(r.dev, r.out)
	tctx := tdaqCtx(context.Background())

	err := srv.OnConfig(tctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not handle /config: %+v", err)
	}
	err = srv.OnInit(tctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not handle /init: %+v", err)
	}
	// a single-slot stream and no consumer: extra reports must be
	// dropped without stalling the acquisition loop.
	srv.data = make(chan []byte, 1)
	err = srv.OnStart(tctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not handle /start: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error)
	go func() { errc <- srv.Loop(tdaqCtx(ctx)) }()

	time.Sleep(50 * time.Millisecond)
	err = srv.OnStop(tctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not handle /stop: %+v", err)
	}
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("could not run server loop: %+v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server loop did not stop")
	}

	if got := r.dev.Cycles(); got < 2 {
		t.Fatalf("invalid cycle count: got=%d, want>=2", got)
	}
	if got, want := len(srv.data), 1; got != want {
		t.Fatalf("invalid stream depth: got=%d, want=%d", got, want)
	}
	want := "0.500 volts\r\n" + endOfReport + "\r\n"
	if got := string(<-srv.data); got != want {
		t.Fatalf("invalid ADC frame:\ngot= %q\nwant=%q", got, want)
	}
}
