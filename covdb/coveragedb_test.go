package covdb

import (
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/0xsoniclabs/figaro/contract"
	"github.com/0xsoniclabs/figaro/cover"
	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(require *require.Assertions) string {
	file, err := os.CreateTemp("", "*.db")
	require.NoError(err)
	require.NoError(file.Close())
	return file.Name()
}

// transferCoverage is a rollup record the way the registry produces them: an
// entry counter, two branch positions and one modifier position.
func transferCoverage() CoverageData {
	return CoverageData{
		File: "contracts/Token.sol",
		Coverage: &cover.DeclarationCoverage{
			Decl: &contract.Declaration{
				AstID:    7,
				Name:     "transfer",
				Contract: "Token",
				Kind:     contract.DeclFunction,
				Start:    120,
				End:      440,
			},
			CoverageHits: 12,
			BranchRecords: map[int32]*cover.PositionHits{
				150: {Start: 150, End: 180, Hits: 12},
				240: {Start: 240, End: 260, Hits: 3},
			},
			ModifierRecords: map[int32]*cover.PositionHits{
				130: {Start: 130, End: 142, Hits: 12},
			},
			CallCount: 2,
		},
	}
}

func approveCoverage() CoverageData {
	return CoverageData{
		File: "contracts/Token.sol",
		Coverage: &cover.DeclarationCoverage{
			Decl: &contract.Declaration{
				AstID:    9,
				Name:     "approve",
				Contract: "Token",
				Kind:     contract.DeclFunction,
				Start:    460,
				End:      700,
			},
			CoverageHits: 4,
			BranchRecords: map[int32]*cover.PositionHits{
				500: {Start: 500, End: 520, Hits: 4},
			},
			ModifierRecords: map[int32]*cover.PositionHits{},
		},
	}
}

func TestAdd(t *testing.T) {
	require := require.New(t)

	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	db, err := newCoverageDB(dbFile, RunInfo{Artifacts: "build/contracts.json", Contracts: 2})
	require.NoError(err)
	defer func() {
		require.NoError(db.Close())
	}()
	defer func() {
		require.NoError(os.Remove(dbFile))
	}()

	err = db.Add(transferCoverage())
	require.NoError(err)

	require.Len(db.buffer, 1)
	require.Len(db.buffer[0].Coverage.BranchRecords, 2)
	require.Len(db.buffer[0].Coverage.ModifierRecords, 1)
}

func TestFlush(t *testing.T) {
	// db has 0 records
	require := require.New(t)
	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	defer func(name string) {
		require.NoError(os.Remove(name))
	}(dbFile)
	db, err := newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	err = db.Add(approveCoverage())
	require.NoError(err)

	err = db.Flush()
	require.NoError(err)
	err = db.Close()
	require.NoError(err)

	// db has 2 records
	db, err = newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)

	err = db.Add(transferCoverage())
	require.NoError(err)
	err = db.Add(approveCoverage())
	require.NoError(err)
	require.Len(db.buffer, 2)
	err = db.Flush()
	require.NoError(err)
	require.Len(db.buffer, 0)
	err = db.Close()
	require.NoError(err)

	// trigger Flush method inside Add
	db, err = newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	defer func(db *coverageDB) {
		err = errors.Join(err, db.Close())
		require.NoError(err)
	}(db)

	for i := 1; i < bufferSize; i++ {
		err = db.Add(approveCoverage())
		require.NoError(err)
		require.Len(db.buffer, i)
	}

	err = db.Add(transferCoverage())
	require.NoError(err)
	require.Len(db.buffer, 0)
}

func TestAddRollupOrdersFiles(t *testing.T) {
	require := require.New(t)
	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	defer func(name string) {
		require.NoError(os.Remove(name))
	}(dbFile)

	db, err := newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	defer func() {
		require.NoError(db.Close())
	}()

	rollup := map[string][]*cover.DeclarationCoverage{
		"contracts/Vault.sol": {approveCoverage().Coverage},
		"contracts/Token.sol": {transferCoverage().Coverage, approveCoverage().Coverage},
	}
	err = db.AddRollup(rollup)
	require.NoError(err)

	require.Len(db.buffer, 3)
	assert.Equal(t, "contracts/Token.sol", db.buffer[0].File)
	assert.Equal(t, "contracts/Token.sol", db.buffer[1].File)
	assert.Equal(t, "contracts/Vault.sol", db.buffer[2].File)
}

func TestRunsAreKeptApart(t *testing.T) {
	require := require.New(t)
	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	defer func(name string) {
		require.NoError(os.Remove(name))
	}(dbFile)

	first, err := newCoverageDB(dbFile, RunInfo{Artifacts: "build/a.json", Contracts: 1})
	require.NoError(err)
	require.NoError(first.Close())

	second, err := newCoverageDB(dbFile, RunInfo{Artifacts: "build/b.json", Contracts: 2})
	require.NoError(err)
	defer func() {
		require.NoError(second.Close())
	}()

	require.NotEqual(first.Run(), second.Run())
}

func TestSetCheckpoint(t *testing.T) {
	require := require.New(t)
	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	defer func(name string) {
		require.NoError(os.Remove(name))
	}(dbFile)

	db, err := newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	defer func() {
		require.NoError(db.Close())
	}()

	err = db.SetCheckpoint(5637800)
	require.NoError(err)

	var checkpoint uint64
	err = db.sql.QueryRow("SELECT checkpoint FROM runs WHERE id = ?;", db.run).Scan(&checkpoint)
	require.NoError(err)
	assert.Equal(t, uint64(5637800), checkpoint)
}

func TestDeleteRun(t *testing.T) {
	require := require.New(t)

	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)
	defer func(name string) {
		require.NoError(os.Remove(name))
	}(dbFile)
	db, err := newCoverageDB(dbFile, RunInfo{Artifacts: "build/contracts.json", Contracts: 2})
	require.NoError(err)

	// transfer carries 3 positions, approve 1; with the two declaration rows
	// and the run row the delete covers 7 rows in total
	err = db.Add(transferCoverage())
	require.NoError(err)
	err = db.Add(approveCoverage())
	require.NoError(err)
	err = db.Flush()
	require.NoError(err)

	run := db.Run()
	numDeletedRows, err := db.DeleteRun(run)
	require.NoError(err)
	if numDeletedRows != 7 {
		t.Errorf("unexpected number of rows affected by deletion, expected: %d, got: %d", 7, numDeletedRows)
	}
	err = db.Close()
	require.NoError(err)

	// a second run in the same file must survive the deletion of the first
	db, err = newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	keep, err := newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	defer func() {
		require.NoError(keep.Close())
	}()

	err = db.Add(approveCoverage())
	require.NoError(err)
	require.NoError(db.Flush())
	err = keep.Add(transferCoverage())
	require.NoError(err)
	require.NoError(keep.Flush())

	numDeletedRows, err = keep.DeleteRun(db.Run())
	require.NoError(err)
	if numDeletedRows != 3 {
		t.Errorf("unexpected number of rows affected by deletion, expected: %d, got: %d", 3, numDeletedRows)
	}
	require.NoError(db.Close())

	var kept int
	err = keep.sql.QueryRow("SELECT COUNT(*) FROM declarationCoverage WHERE run = ?;", keep.Run()).Scan(&kept)
	require.NoError(err)
	assert.Equal(t, 1, kept)
}

func TestFlushWritesPositionRows(t *testing.T) {
	require := require.New(t)
	dbFile := tempFile(require)
	t.Logf("db file: %s", dbFile)

	db, err := newCoverageDB(dbFile, RunInfo{})
	require.NoError(err)
	defer func(db *coverageDB) {
		require.NoError(db.Close())
	}(db)
	defer func(name string) {
		require.NoError(os.Remove(name))
	}(dbFile)

	err = db.Add(transferCoverage())
	require.NoError(err)
	err = db.Flush()
	require.NoError(err)

	rows, err := db.sql.Query(
		"SELECT category, startOffset, endOffset, hits FROM positionCoverage WHERE run = ? ORDER BY category, startOffset;", db.run)
	require.NoError(err)
	defer rows.Close()

	type position struct {
		category   string
		start, end int32
		hits       uint64
	}
	var got []position
	for rows.Next() {
		var p position
		require.NoError(rows.Scan(&p.category, &p.start, &p.end, &p.hits))
		got = append(got, p)
	}
	require.NoError(rows.Err())

	assert.Equal(t, []position{
		{"branch", 150, 180, 12},
		{"branch", 240, 260, 3},
		{"modifier", 130, 142, 12},
	}, got)
}

func TestCoverageDB_Add(t *testing.T) {
	mockErr := errors.New("mock error")

	t.Run("Success", func(t *testing.T) {
		db, mockDb, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer func(db *sql.DB) {
			_ = db.Close()
		}(db)

		mockDeclStmt := mockDb.ExpectPrepare("")
		declStmt, err := db.Prepare("")
		if err != nil {
			t.Fatalf("an error '%s' was not expected when preparing declaration statement", err)
		}

		mockPosStmt := mockDb.ExpectPrepare("")
		posStmt, err := db.Prepare("")
		if err != nil {
			t.Fatalf("an error '%s' was not expected when preparing position statement", err)
		}

		cDB := &coverageDB{
			sql:      db,
			declStmt: declStmt,
			posStmt:  posStmt,
			run:      1,
			buffer:   []CoverageData{},
		}

		mockDb.ExpectBegin()
		mockDeclStmt.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mockPosStmt.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mockPosStmt.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mockPosStmt.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mockDb.ExpectCommit()
		err = cDB.Add(transferCoverage())

		assert.Nil(t, err)
		if err = mockDb.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("BeginError", func(t *testing.T) {
		db, mockDb, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer func(db *sql.DB) {
			_ = db.Close()
		}(db)

		cDB := &coverageDB{
			sql:    db,
			run:    1,
			buffer: []CoverageData{},
		}
		mockDb.ExpectBegin().WillReturnError(mockErr)
		err = cDB.Add(transferCoverage())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), mockErr.Error())
		if err = mockDb.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("WriteDeclarationError", func(t *testing.T) {
		db, mockDb, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer func(db *sql.DB) {
			_ = db.Close()
		}(db)

		mockDeclStmt := mockDb.ExpectPrepare("")
		declStmt, err := db.Prepare("")
		if err != nil {
			t.Fatalf("an error '%s' was not expected when preparing declaration statement", err)
		}

		cDB := &coverageDB{
			sql:      db,
			declStmt: declStmt,
			run:      1,
			buffer:   []CoverageData{},
		}
		mockDb.ExpectBegin()
		mockDeclStmt.ExpectExec().WillReturnError(mockErr)
		err = cDB.Add(transferCoverage())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), mockErr.Error())
		if err = mockDb.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("WritePositionError", func(t *testing.T) {
		db, mockDb, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer func(db *sql.DB) {
			_ = db.Close()
		}(db)

		mockDeclStmt := mockDb.ExpectPrepare("")
		declStmt, err := db.Prepare("")
		if err != nil {
			t.Fatalf("an error '%s' was not expected when preparing declaration statement", err)
		}

		mockPosStmt := mockDb.ExpectPrepare("")
		posStmt, err := db.Prepare("")
		if err != nil {
			t.Fatalf("an error '%s' was not expected when preparing position statement", err)
		}

		cDB := &coverageDB{
			sql:      db,
			declStmt: declStmt,
			posStmt:  posStmt,
			run:      1,
			buffer:   []CoverageData{},
		}

		mockDb.ExpectBegin()
		mockDeclStmt.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
		mockPosStmt.ExpectExec().WillReturnError(mockErr)
		err = cDB.Add(transferCoverage())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), mockErr.Error())
		if err = mockDb.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}
