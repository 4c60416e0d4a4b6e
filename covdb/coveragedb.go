// Copyright 2026 Sonic Labs
// This file is part of Figaro Contract Coverage Infrastructure for Sonic
//
// Figaro is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Figaro is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Figaro. If not, see <http://www.gnu.org/licenses/>.

// Package covdb provides a sqlite3 based store of coverage rollups, one run
// per session, so results can be kept across polls and compared offline.
package covdb

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/0xsoniclabs/figaro/cover"
	"golang.org/x/exp/maps"

	// Your main or test packages require this import so the sql package is properly initialized.
	_ "github.com/mattn/go-sqlite3"
)

const (
	// bufferSize of the in-memory buffer for coverage records
	bufferSize = 1000

	// SQL statement for inserting the metadata row of a coverage run
	insertRunSQL = `
INSERT INTO runs (
	artifacts, contracts, checkpoint
) VALUES (
	?, ?, ?
)
`

	// SQL statement for inserting the rollup record of one declaration
	insertDeclarationSQL = `
INSERT INTO declarationCoverage (
	run, file, contract, name, kind, startOffset, coverageHits, callCount
) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?
)
`

	// SQL statement for inserting one branch or modifier position record
	insertPositionSQL = `
INSERT INTO positionCoverage (
	run, file, declaration, category, startOffset, endOffset, hits
) VALUES (
	?, ?, ?, ?, ?, ?, ?
)
`

	// SQL statement for creating coverage tables
	createSQL = `
PRAGMA journal_mode = MEMORY;
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	createTimestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	artifacts TEXT,
	contracts INTEGER,
	checkpoint INTEGER
);
CREATE TABLE IF NOT EXISTS declarationCoverage (
	run INTEGER,
	file TEXT,
	contract TEXT,
	name TEXT,
	kind TEXT,
	startOffset INTEGER,
	coverageHits INTEGER,
	callCount INTEGER
);
CREATE TABLE IF NOT EXISTS positionCoverage (
	run INTEGER,
	file TEXT,
	declaration TEXT,
	category TEXT,
	startOffset INTEGER,
	endOffset INTEGER,
	hits INTEGER
);
`
)

// CoverageData is one buffered record: the rolled-up coverage of one
// declaration within one source file.
type CoverageData struct {
	File     string
	Coverage *cover.DeclarationCoverage
}

//go:generate mockgen -source coveragedb.go -destination coveragedb_mock.go -package covdb
type CoverageDB interface {
	Close() error
	Add(data CoverageData) error
	AddRollup(rollup map[string][]*cover.DeclarationCoverage) error
	Flush() error
	SetCheckpoint(block uint64) error
	DeleteRun(run int64) (int64, error)
	Run() int64
}

// coverageDB is a coverage store for rollup records.
type coverageDB struct {
	sql      *sql.DB        // Sqlite3 database
	declStmt *sql.Stmt      // Prepared insert statement for a declaration rollup
	posStmt  *sql.Stmt      // Prepared insert statement for a branch/modifier position
	run      int64          // id of this session's run row
	buffer   []CoverageData // record buffer
}

// RunInfo describes the coverage run a new database session belongs to.
type RunInfo struct {
	Artifacts string // path or descriptor of the artifact set
	Contracts int
}

// NewCoverageDB constructs a coverage database session. The run row is
// written immediately, so concurrent sessions into the same file stay apart.
func NewCoverageDB(dbFile string, info RunInfo) (CoverageDB, error) {
	return newCoverageDB(dbFile, info)
}

func newCoverageDB(dbFile string, info RunInfo) (*coverageDB, error) {
	// open SQLITE3 DB
	sqlDB, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %v; %v", dbFile, err)
	}
	// create coverage schema if not exists
	if _, err = sqlDB.Exec(createSQL); err != nil {
		return nil, fmt.Errorf("failed to create coverage schema; %v", err)
	}
	// register this run
	res, err := sqlDB.Exec(insertRunSQL, info.Artifacts, info.Contracts, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run metadata; %v", err)
	}
	run, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read run id; %v", err)
	}
	// prepare INSERT statements for subsequent use
	declStmt, err := sqlDB.Prepare(insertDeclarationSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare a SQL statement for declaration coverage; %v", err)
	}
	posStmt, err := sqlDB.Prepare(insertPositionSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare a SQL statement for position coverage; %v", err)
	}

	return &coverageDB{
		sql:      sqlDB,
		declStmt: declStmt,
		posStmt:  posStmt,
		run:      run,
		buffer:   make([]CoverageData, 0, bufferSize),
	}, nil
}

// Run returns the id of this session's run row.
func (db *coverageDB) Run() int64 {
	return db.run
}

// Close flushes the buffer and closes the coverage database.
func (db *coverageDB) Close() error {
	defer func() {
		db.posStmt.Close()
		db.declStmt.Close()
		db.sql.Close()
	}()
	if err := db.Flush(); err != nil {
		return err
	}
	return nil
}

// Add a coverage record to the database.
func (db *coverageDB) Add(data CoverageData) error {
	db.buffer = append(db.buffer, data)
	if len(db.buffer) == cap(db.buffer) {
		if err := db.Flush(); err != nil {
			return fmt.Errorf("unable to flush coverage records: %w", err)
		}
	}
	return nil
}

// AddRollup adds every record of a registry rollup, file by file.
func (db *coverageDB) AddRollup(rollup map[string][]*cover.DeclarationCoverage) error {
	files := maps.Keys(rollup)
	sort.Strings(files)
	for _, file := range files {
		for _, cov := range rollup[file] {
			if err := db.Add(CoverageData{File: file, Coverage: cov}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush the coverage records into the database.
func (db *coverageDB) Flush() error {
	// open new transaction
	tx, err := db.sql.Begin()
	if err != nil {
		return err
	}
	// write coverage records into sqlite3 database
	for _, data := range db.buffer {
		decl := data.Coverage.Decl
		_, err := tx.Stmt(db.declStmt).Exec(db.run, data.File, decl.Contract, decl.Name,
			decl.Kind.String(), decl.Start, data.Coverage.CoverageHits, data.Coverage.CallCount)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		// write branch and modifier positions
		if err := writePositions(tx, db.posStmt, db.run, data.File, decl.Ident(), "branch", data.Coverage.BranchRecords); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := writePositions(tx, db.posStmt, db.run, data.File, decl.Ident(), "modifier", data.Coverage.ModifierRecords); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	// clear buffer
	db.buffer = db.buffer[:0]
	// commit transaction
	return tx.Commit()
}

func writePositions(tx *sql.Tx, stmt *sql.Stmt, run int64, file, declaration, category string, records map[int32]*cover.PositionHits) error {
	offsets := maps.Keys(records)
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	for _, offset := range offsets {
		r := records[offset]
		if _, err := tx.Stmt(stmt).Exec(run, file, declaration, category, r.Start, r.End, r.Hits); err != nil {
			return err
		}
	}
	return nil
}

// SetCheckpoint stores the poller checkpoint reached by this run.
func (db *coverageDB) SetCheckpoint(block uint64) error {
	if _, err := db.sql.Exec("UPDATE runs SET checkpoint = ? WHERE id = ?;", block, db.run); err != nil {
		return fmt.Errorf("failed to store checkpoint %d; %v", block, err)
	}
	return nil
}

// DeleteRun deletes all records of one run, including its metadata row.
func (db *coverageDB) DeleteRun(run int64) (int64, error) {
	var totalNumRows int64

	tx, err := db.sql.Begin()
	if err != nil {
		return 0, err
	}

	for _, table := range []string{"declarationCoverage", "positionCoverage", "runs"} {
		column := "run"
		if table == "runs" {
			column = "id"
		}
		deleteSql := fmt.Sprintf("DELETE FROM %s WHERE %s = %d;", table, column, run)
		res, err := db.sql.Exec(deleteSql)
		if err != nil {
			return 0, err
		}

		numRowsAffected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}

		totalNumRows += numRowsAffected
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return totalNumRows, nil
}
