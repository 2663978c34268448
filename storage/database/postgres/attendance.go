package pgrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRow struct {
	ID        string    `db:"id"`
	ClassID   string    `db:"class_id"`
	StudentID string    `db:"student_id"`
	Date      null.Time `db:"date"`
	Present   null.Bool `db:"present"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

const attendanceColumns = "id, class_id, student_id, date, present, created_at, updated_at"

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{exec: exec}
}

func (repo attendanceRepository) unpack(row attendanceRow) attendance.Record {
	return attendance.Record{
		ID:        row.ID,
		ClassID:   row.ClassID,
		StudentID: row.StudentID,
		Date:      row.Date.Time,
		Present:   row.Present.Bool,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo attendanceRepository) ProvisionRecords(ctx context.Context, recs []attendance.Record, exec ...core.DBExecutor) (int, error) {
	exe := getExec(repo.exec, exec)
	q := `
	INSERT INTO attendance_record (` + attendanceColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (class_id, student_id, date) DO NOTHING`

	var created int
	for _, rec := range recs {
		res, err := exe.ExecContext(ctx, q,
			rec.ID, rec.ClassID, rec.StudentID, rec.Date.UTC(), rec.Present, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
		if err != nil {
			return created, errors.Wrap(err, "provisioning attendance records")
		}
		cnt, err := res.RowsAffected()
		if err != nil {
			return created, errors.Wrap(err, "provisioning attendance records")
		}
		created += int(cnt)
	}
	return created, nil
}

func (repo attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record, exec ...core.DBExecutor) (attendance.Record, error) {
	q := `
	INSERT INTO attendance_record (` + attendanceColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (class_id, student_id, date)
	DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at
	RETURNING ` + attendanceColumns
	var row attendanceRow
	err := getExec(repo.exec, exec).GetContext(ctx, &row, q,
		rec.ID, rec.ClassID, rec.StudentID, rec.Date.UTC(), rec.Present, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return attendance.Record{}, trapConflictErr(err, "upserting attendance record")
	}
	return repo.unpack(row), nil
}

func (repo attendanceRepository) QueryClassRecords(ctx context.Context, classID string, exec ...core.DBExecutor) ([]attendance.Record, error) {
	var rows []attendanceRow
	q := `SELECT ` + attendanceColumns + ` FROM attendance_record WHERE class_id = $1 ORDER BY student_id, date`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.unpack(row))
	}
	return recs, nil
}

func (repo attendanceRepository) CountPresent(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM attendance_record WHERE class_id = $1 AND student_id = $2 AND present`
	err := getExec(repo.exec, exec).GetContext(ctx, &n, q, classID, studentID)
	if err != nil && err != sql.ErrNoRows {
		return 0, errors.Wrap(err, "counting present records")
	}
	return n, nil
}

func (repo attendanceRepository) DeleteStudentRecords(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`DELETE FROM attendance_record WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance records")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting attendance records")
	}
	return int(cnt), nil
}
