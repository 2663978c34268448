// Package pgrepos implements the repositories on PostgreSQL with hand-written
// SQL over sqlx. Every uniqueness-keyed write goes through ON CONFLICT so
// concurrent callers never race a read-then-write.
package pgrepos

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

func getExec(fallback core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return fallback
}

// trapConflictErr converts unique-violation and serialization failures raised
// by concurrent upserts on the same key into core.ErrConflict so services can
// retry the write.
func trapConflictErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "40001":
			return core.ErrConflict
		}
	}
	return errors.Wrap(err, msg)
}
