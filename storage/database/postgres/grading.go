package pgrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grading"
)

type gradeRow struct {
	ID        string         `db:"id"`
	ClassID   string         `db:"class_id"`
	StudentID string         `db:"student_id"`
	Scores    types.JSONText `db:"scores"`
	CreatedAt null.Time      `db:"created_at"`
	UpdatedAt null.Time      `db:"updated_at"`
}

const gradeColumns = "id, class_id, student_id, scores, created_at, updated_at"

type gradingRepository struct {
	exec core.DBExecutor
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(exec core.DBExecutor) *gradingRepository {
	return &gradingRepository{exec: exec}
}

func (repo gradingRepository) pack(rec grading.Record) (gradeRow, error) {
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return gradeRow{}, errors.Wrap(err, "encoding scores")
	}
	return gradeRow{
		ID:        rec.ID,
		ClassID:   rec.ClassID,
		StudentID: rec.StudentID,
		Scores:    types.JSONText(scores),
		CreatedAt: null.NewTime(rec.CreatedAt.UTC(), !rec.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
	}, nil
}

func (repo gradingRepository) unpack(row gradeRow) (grading.Record, error) {
	var scores grading.Scores
	if len(row.Scores) > 0 {
		if err := json.Unmarshal(row.Scores, &scores); err != nil {
			return grading.Record{}, errors.Wrap(err, "decoding scores")
		}
	}
	return grading.Record{
		ID:        row.ID,
		ClassID:   row.ClassID,
		StudentID: row.StudentID,
		Scores:    scores,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}, nil
}

func (repo gradingRepository) unpackSlice(rows []gradeRow) ([]grading.Record, error) {
	recs := make([]grading.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := repo.unpack(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo gradingRepository) EnsureRecord(ctx context.Context, rec grading.Record, exec ...core.DBExecutor) (bool, error) {
	row, err := repo.pack(rec)
	if err != nil {
		return false, err
	}
	q := `
	INSERT INTO grade_record (` + gradeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (class_id, student_id) DO NOTHING`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q,
		row.ID, row.ClassID, row.StudentID, row.Scores, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return false, errors.Wrap(err, "ensuring grade record")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "ensuring grade record")
	}
	return cnt > 0, nil
}

func (repo gradingRepository) GetRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (grading.Record, error) {
	var row gradeRow
	q := `SELECT ` + gradeColumns + ` FROM grade_record WHERE class_id = $1 AND student_id = $2`
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, classID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return grading.Record{}, grading.ErrNotFound
		}
		return grading.Record{}, errors.Wrap(err, "finding grade record")
	}
	return repo.unpack(row)
}

func (repo gradingRepository) QueryClassRecords(ctx context.Context, classID string, exec ...core.DBExecutor) ([]grading.Record, error) {
	var rows []gradeRow
	q := `SELECT ` + gradeColumns + ` FROM grade_record WHERE class_id = $1 ORDER BY student_id`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	return repo.unpackSlice(rows)
}

func (repo gradingRepository) QueryStudentRecords(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]grading.Record, error) {
	var rows []gradeRow
	q := `SELECT ` + gradeColumns + ` FROM grade_record WHERE student_id = $1 ORDER BY class_id`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	return repo.unpackSlice(rows)
}

func (repo gradingRepository) UpsertScores(ctx context.Context, rec grading.Record, exec ...core.DBExecutor) (grading.Record, error) {
	row, err := repo.pack(rec)
	if err != nil {
		return grading.Record{}, err
	}
	q := `
	INSERT INTO grade_record (` + gradeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (class_id, student_id)
	DO UPDATE SET scores = EXCLUDED.scores, updated_at = EXCLUDED.updated_at
	RETURNING ` + gradeColumns
	var updated gradeRow
	err = getExec(repo.exec, exec).GetContext(ctx, &updated, q,
		row.ID, row.ClassID, row.StudentID, row.Scores, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return grading.Record{}, trapConflictErr(err, "upserting grade record")
	}
	return repo.unpack(updated)
}

func (repo gradingRepository) DeleteRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`DELETE FROM grade_record WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting grade record")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting grade record")
	}
	return int(cnt), nil
}
