// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"bytes"
	"sync/atomic"
	"time"

	"github.com/go-daq/tdaq"
	"golang.org/x/xerrors"
)

// Server exposes an acquisition device as a TDAQ process.
// Voltage reports are streamed, one frame per cycle, on the /adc
// end-point.
type Server struct {
	dev *Device
	buf *bytes.Buffer

	runNbr  uint64
	running int32

	data chan []byte
}

// NewServer creates a TDAQ server around the acquisition device mapped
// through devmem.
func NewServer(devmem string, opts ...Option) (*Server, error) {
	buf := new(bytes.Buffer)
	// reports are collected per cycle and streamed on /adc.
	opts = append(opts, WithOutput(buf))

	dev, err := NewDevice(devmem, opts...)
	if err != nil {
		return nil, xerrors.Errorf("could not create acquisition device: %w", err)
	}
	return newServerFrom(dev, buf), nil
}

func newServerFrom(dev *Device, buf *bytes.Buffer) *Server {
	return &Server{
		dev:  dev,
		buf:  buf,
		data: make(chan []byte, 1024),
	}
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := srv.dev.Configure()
	if err != nil {
		ctx.Msg.Errorf("could not configure device: %+v", err)
		return xerrors.Errorf("could not configure device: %w", err)
	}
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.dev.Initialize()
	if err != nil {
		ctx.Msg.Errorf("could not initialize device: %+v", err)
		return xerrors.Errorf("could not initialize device: %w", err)
	}
	srv.data = make(chan []byte, 1024)
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := srv.dev.Initialize()
	if err != nil {
		ctx.Msg.Errorf("could not reset device: %+v", err)
		return xerrors.Errorf("could not reset device: %w", err)
	}
	srv.data = make(chan []byte, 1024)
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	atomic.AddUint64(&srv.runNbr, 1)
	atomic.StoreInt32(&srv.running, 1)
	ctx.Msg.Debugf("received /start command... (run=%d)", atomic.LoadUint64(&srv.runNbr))
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	atomic.StoreInt32(&srv.running, 0)
	ctx.Msg.Debugf("received /stop command... -> cycles=%d", srv.dev.Cycles())
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return srv.dev.Close()
}

// ADC streams the per-cycle voltage reports.
func (srv *Server) ADC(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

// Loop runs acquisition cycles while the process is in the running
// state, pushing each report on the /adc stream.
func (srv *Server) Loop(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
		}

		if atomic.LoadInt32(&srv.running) == 1 {
			srv.buf.Reset()
			err := srv.dev.cycle()
			if err != nil {
				ctx.Msg.Errorf("cycle failed: %+v", err)
			} else {
				report := make([]byte, srv.buf.Len())
				copy(report, srv.buf.Bytes())
				select {
				case srv.data <- report:
				default:
					// consumer too slow, drop the report.
				}
			}
		}

		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-time.After(srv.dev.cfg.daq.interval):
		}
	}
}
