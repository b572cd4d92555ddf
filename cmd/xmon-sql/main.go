// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command xmon-sql inspects the calibration database.
package main // import "github.com/go-zynq/xmon/cmd/xmon-sql"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/go-zynq/xmon/caldb"
)

const (
	dbname = "xmonsrv"
)

func main() {
	log.SetPrefix("xmon-sql: ")
	log.SetFlags(0)

	var (
		setup = flag.String("setup", "", "acquisition setup to inspect")
		brd   = flag.Int("board", -1, "board ID to inspect")
	)

	flag.Parse()

	log.Printf("setup: %q", *setup)
	log.Printf("board: %d", *brd)

	db, err := caldb.Open(dbname)
	if err != nil {
		log.Fatalf("could not open monitoring db: %+v", err)
	}
	defer db.Close()

	err = doQuery(db, *setup, *brd)
	if err != nil {
		log.Fatalf("could not do query: %+v", err)
	}
}

func doQuery(db *caldb.DB, setup string, brd int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if setup == "" {
		v, err := db.LastSetup(ctx)
		if err != nil {
			return fmt.Errorf("could not get last setup value: %w", err)
		}
		setup = v
		log.Printf("setup: %q", setup)
	}

	if brd < 0 {
		v, err := db.LastBoardID(ctx)
		if err != nil {
			return fmt.Errorf("could not get last board-id: %w", err)
		}
		brd = int(v)
		log.Printf("board: %d", brd)
	}

	set, err := db.AcqSettings(ctx, setup, uint32(brd))
	if err != nil {
		return fmt.Errorf("could not get settings (setup=%q, board=%d): %w",
			setup, brd, err,
		)
	}
	log.Printf("settings: %#v", set)

	{
		rows, err := db.QueryContext(ctx,
			"SELECT identifier, name, datetime FROM setups ORDER BY datetime DESC",
		)
		if err != nil {
			return fmt.Errorf("could not get setups list: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id   uint32
				name string
				date string
			)
			err = rows.Scan(&id, &name, &date)
			if err != nil {
				return fmt.Errorf("could not scan setups list: %w", err)
			}
			log.Printf(">>> setup=%03d, name=%q, date=%s", id, name, date)
		}
	}

	return nil
}
