// Copyright 2024 The go-zynq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package caldb holds types to describe the calibration and acquisition
// settings database of the monitoring system.
package caldb // import "github.com/go-zynq/xmon/caldb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to easily retrieve acquisition
// settings from the monitoring database.
type DB struct {
	db   *sql.DB
	name string // name of the monitoring database
}

// Open opens a connection to the monitoring database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("caldb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("caldb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("caldb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastSetup returns the name of the most recent acquisition setup.
func (db *DB) LastSetup(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	setup := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM setups ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return setup, fmt.Errorf("caldb: could not query setup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&setup)
		if err != nil {
			return setup, fmt.Errorf("caldb: could not get setup value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return setup, fmt.Errorf("caldb: could not scan db for setup: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return setup, fmt.Errorf("caldb: context error while retrieving setup: %w", err)
	}

	return setup, nil
}

// LastBoardID returns the identifier of the most recently registered
// acquisition board.
func (db *DB) LastBoardID(ctx context.Context) (uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var brdid uint32
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT identifier FROM boards ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return brdid, fmt.Errorf("caldb: could not query board-id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&brdid)
		if err != nil {
			return brdid, fmt.Errorf("caldb: could not get board-id value: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return brdid, fmt.Errorf("caldb: could not scan db for board-id: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return brdid, fmt.Errorf("caldb: context error while retrieving board-id: %w", err)
	}

	return brdid, nil
}

// AcqSettings returns the acquisition settings of the named setup for
// the given board.
func (db *DB) AcqSettings(ctx context.Context, setup string, brdID uint32) (Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var set Settings
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT settings.* FROM settings
JOIN setup_settings ON settings.identifier=setup_settings.settings
JOIN setups         ON setups.identifier=setup_settings.setup
WHERE (
	setups.name=? AND settings.board_id=?
)
`,
		setup, brdID,
	)
	if err != nil {
		return set, fmt.Errorf("caldb: could not run settings query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(
			&set.ID, &set.BoardID,
			&set.Channels, &set.ClkDiv,
			&set.Samples, &set.IntervalMS, &set.TimeoutMS,
		)
		if err != nil {
			return set, fmt.Errorf("caldb: could not scan row for settings: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return set, fmt.Errorf("caldb: could not scan db for settings: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return set, fmt.Errorf("caldb: context error while retrieving settings: %w", err)
	}

	return set, nil
}
