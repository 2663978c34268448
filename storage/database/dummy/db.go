// Package dummydb provides in-memory repository implementations used by tests
// and local development; no postgres required.
package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/school"
)

var errNotRelational = errors.New("dummydb: raw SQL is not supported")

type DB struct {
	mu sync.RWMutex

	persons  map[string]*identity.Person
	periods  map[string]*school.AcademicPeriod
	levels   map[string]*school.Level
	classes  map[string]*school.ClassSection
	sessions map[string]*school.ScheduledSession
	roster   map[string]map[string]int // classID -> studentID -> enroll order
	// attendance keyed by "classID|studentID|date"
	attendance map[string]*attendance.Record
	// grades keyed by "classID|studentID"
	grades map[string]*grading.Record

	rosterSeq int
}

var _ core.DB = (*DB)(nil)

func Open() (*DB, error) {
	return &DB{
		persons:    make(map[string]*identity.Person),
		periods:    make(map[string]*school.AcademicPeriod),
		levels:     make(map[string]*school.Level),
		classes:    make(map[string]*school.ClassSection),
		sessions:   make(map[string]*school.ScheduledSession),
		roster:     make(map[string]map[string]int),
		attendance: make(map[string]*attendance.Record),
		grades:     make(map[string]*grading.Record),
	}, nil
}

// Begin returns a no-op transactor; the dummy repositories apply writes
// directly under the DB mutex.
func (db *DB) Begin(ctx context.Context) (core.DBTransactor, error) {
	return noopTx{db}, nil
}

// core.DBExecutor; never used against the in-memory store.

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNotRelational
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNotRelational
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNotRelational
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNotRelational
}

type noopTx struct{ *DB }

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func key2(a, b string) string     { return a + "|" + b }
func key3(a, b, c string) string  { return a + "|" + b + "|" + c }
