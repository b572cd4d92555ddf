// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// install copies the sleep binary under a unique name so the killall
// pass cannot touch unrelated processes.
func install(t *testing.T, dir string, i int) string {
	t.Helper()

	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("could not find sleep: %+v", err)
	}
	src, err := os.Open(path)
	if err != nil {
		t.Fatalf("could not open %q: %+v", path, err)
	}
	defer src.Close()

	oname := filepath.Join(dir, "xmon-boot-slp-"+strconv.Itoa(i))
	dst, err := os.OpenFile(oname, os.O_CREATE|os.O_WRONLY, 0755)
	if err != nil {
		t.Fatalf("could not create %q: %+v", oname, err)
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	if err != nil {
		t.Fatalf("could not copy %q: %+v", path, err)
	}
	return oname
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	bins := make([]string, 2)
	for i := range bins {
		bins[i] = install(t, dir, i)
	}

	for _, tc := range []struct {
		name string
		cmds []*exec.Cmd
		mon  bool
		stop bool
	}{
		{
			name: "simple",
			cmds: []*exec.Cmd{
				exec.Command(bins[0], "1"),
				exec.Command(bins[1], "1"),
			},
		},
		{
			name: "simple-pmon",
			cmds: []*exec.Cmd{
				exec.Command(bins[0], "1"),
				exec.Command(bins[1], "1"),
			},
			mon: true,
		},
		{
			name: "simple-stop",
			cmds: []*exec.Cmd{
				exec.Command(bins[0], "30"),
				exec.Command(bins[1], "30"),
			},
			stop: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			odir := t.TempDir()

			stop := make(chan os.Signal, 1)
			if tc.stop {
				go func() {
					time.Sleep(2 * time.Second)
					stop <- os.Interrupt
				}()
			}
			err := run(tc.mon, 500*time.Millisecond, tc.cmds, odir, stop)
			if err != nil {
				t.Fatalf("could not run processes: %+v", err)
			}
		})
	}
}
