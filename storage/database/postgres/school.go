package pgrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
)

type (
	periodRow struct {
		ID        string      `db:"id"`
		Name      null.String `db:"name"`
		Year      null.Int    `db:"year"`
		StartDate null.Time   `db:"start_date"`
		EndDate   null.Time   `db:"end_date"`
		IsActive  null.Bool   `db:"is_active"`
		CreatedAt null.Time   `db:"created_at"`
		UpdatedAt null.Time   `db:"updated_at"`
	}

	levelRow struct {
		ID   string      `db:"id"`
		Name null.String `db:"name"`
	}

	classRow struct {
		ID            string         `db:"id"`
		Name          null.String    `db:"name"`
		LevelID       null.String    `db:"level_id"`
		PeriodID      null.String    `db:"period_id"`
		TeacherID     null.String    `db:"teacher_id"`
		AssistantID   null.String    `db:"assistant_id"`
		TimeSlots     types.JSONText `db:"time_slots"`
		TotalSessions null.Int       `db:"total_sessions"`
		CreatedAt     null.Time      `db:"created_at"`
		UpdatedAt     null.Time      `db:"updated_at"`
	}

	sessionRow struct {
		ID      string    `db:"id"`
		ClassID string    `db:"class_id"`
		Date    null.Time `db:"date"`
	}
)

const (
	periodColumns  = "id, name, year, start_date, end_date, is_active, created_at, updated_at"
	classColumns   = "id, name, level_id, period_id, teacher_id, assistant_id, time_slots, total_sessions, created_at, updated_at"
	sessionColumns = "id, class_id, date"
)

type schoolRepository struct {
	exec core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{exec: exec}
}

// periods

func (repo schoolRepository) unpackPeriod(row periodRow) school.AcademicPeriod {
	return school.AcademicPeriod{
		ID:        row.ID,
		Name:      row.Name.String,
		Year:      int(row.Year.Int),
		StartDate: row.StartDate.Time,
		EndDate:   row.EndDate.Time,
		IsActive:  row.IsActive.Bool,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo schoolRepository) CreatePeriod(ctx context.Context, p school.AcademicPeriod, exec ...core.DBExecutor) (school.AcademicPeriod, error) {
	p.ID = uuid.New().String()
	q := `
	INSERT INTO academic_period (` + periodColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (name) DO NOTHING
	RETURNING id`
	var id string
	err := getExec(repo.exec, exec).GetContext(ctx, &id, q,
		p.ID, p.Name, p.Year, p.StartDate.UTC(), p.EndDate.UTC(), p.IsActive, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err == sql.ErrNoRows {
		return school.AcademicPeriod{}, school.ErrPeriodExists
	}
	if err != nil {
		return school.AcademicPeriod{}, errors.Wrap(err, "inserting period")
	}
	return p, nil
}

func (repo schoolRepository) GetPeriod(ctx context.Context, id string, exec ...core.DBExecutor) (school.AcademicPeriod, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.AcademicPeriod{}, school.ErrPeriodNotFound
	}
	var row periodRow
	q := `SELECT ` + periodColumns + ` FROM academic_period WHERE id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.AcademicPeriod{}, school.ErrPeriodNotFound
		}
		return school.AcademicPeriod{}, errors.Wrap(err, "finding period")
	}
	return repo.unpackPeriod(row), nil
}

func (repo schoolRepository) QueryPeriods(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]school.AcademicPeriod, error) {
	q := `SELECT ` + periodColumns + ` FROM academic_period`
	if activeOnly {
		q += " WHERE is_active"
	}
	q += " ORDER BY year, name"

	var rows []periodRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying periods")
	}
	periods := make([]school.AcademicPeriod, 0, len(rows))
	for _, row := range rows {
		periods = append(periods, repo.unpackPeriod(row))
	}
	return periods, nil
}

func (repo schoolRepository) UpdatePeriod(ctx context.Context, p school.AcademicPeriod, exec ...core.DBExecutor) (school.AcademicPeriod, error) {
	q := `
	UPDATE academic_period
	SET name = $2, year = $3, start_date = $4, end_date = $5, is_active = $6, updated_at = $7
	WHERE id = $1
	RETURNING ` + periodColumns
	var row periodRow
	err := getExec(repo.exec, exec).GetContext(ctx, &row, q,
		p.ID, p.Name, p.Year, p.StartDate.UTC(), p.EndDate.UTC(), p.IsActive, p.UpdatedAt.UTC())
	if err == sql.ErrNoRows {
		return school.AcademicPeriod{}, school.ErrPeriodNotFound
	}
	if err != nil {
		return school.AcademicPeriod{}, errors.Wrap(err, "updating period")
	}
	return repo.unpackPeriod(row), nil
}

// levels

func (repo schoolRepository) CreateLevel(ctx context.Context, l school.Level, exec ...core.DBExecutor) (school.Level, error) {
	l.ID = uuid.New().String()
	q := `
	INSERT INTO level (id, name)
	VALUES ($1, $2)
	ON CONFLICT (name) DO NOTHING
	RETURNING id`
	var id string
	err := getExec(repo.exec, exec).GetContext(ctx, &id, q, l.ID, l.Name)
	if err == sql.ErrNoRows {
		return school.Level{}, school.ErrLevelExists
	}
	if err != nil {
		return school.Level{}, errors.Wrap(err, "inserting level")
	}
	return l, nil
}

func (repo schoolRepository) GetLevel(ctx context.Context, id string, exec ...core.DBExecutor) (school.Level, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.Level{}, school.ErrLevelNotFound
	}
	var row levelRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, `SELECT id, name FROM level WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Level{}, school.ErrLevelNotFound
		}
		return school.Level{}, errors.Wrap(err, "finding level")
	}
	return school.Level{ID: row.ID, Name: row.Name.String}, nil
}

func (repo schoolRepository) QueryLevels(ctx context.Context, exec ...core.DBExecutor) ([]school.Level, error) {
	var rows []levelRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, `SELECT id, name FROM level ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying levels")
	}
	levels := make([]school.Level, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, school.Level{ID: row.ID, Name: row.Name.String})
	}
	return levels, nil
}

// classes

func (repo schoolRepository) packClass(c school.ClassSection) (classRow, error) {
	slots, err := json.Marshal(c.TimeSlots)
	if err != nil {
		return classRow{}, errors.Wrap(err, "encoding time slots")
	}
	return classRow{
		ID:            c.ID,
		Name:          null.NewString(c.Name, c.Name != ""),
		LevelID:       null.NewString(c.LevelID, c.LevelID != ""),
		PeriodID:      null.NewString(c.PeriodID, c.PeriodID != ""),
		TeacherID:     null.NewString(c.TeacherID, c.TeacherID != ""),
		AssistantID:   null.NewString(c.AssistantID, c.AssistantID != ""),
		TimeSlots:     types.JSONText(slots),
		TotalSessions: null.IntFrom(c.TotalSessions),
		CreatedAt:     null.NewTime(c.CreatedAt.UTC(), !c.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(c.UpdatedAt.UTC(), !c.UpdatedAt.IsZero()),
	}, nil
}

func (repo schoolRepository) unpackClass(row classRow) (school.ClassSection, error) {
	var slots []school.TimeSlot
	if len(row.TimeSlots) > 0 {
		if err := json.Unmarshal(row.TimeSlots, &slots); err != nil {
			return school.ClassSection{}, errors.Wrap(err, "decoding time slots")
		}
	}
	return school.ClassSection{
		ID:            row.ID,
		Name:          row.Name.String,
		LevelID:       row.LevelID.String,
		PeriodID:      row.PeriodID.String,
		TeacherID:     row.TeacherID.String,
		AssistantID:   row.AssistantID.String,
		TimeSlots:     slots,
		TotalSessions: int(row.TotalSessions.Int),
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}, nil
}

func (repo schoolRepository) unpackClassSlice(rows []classRow) ([]school.ClassSection, error) {
	classes := make([]school.ClassSection, 0, len(rows))
	for _, row := range rows {
		c, err := repo.unpackClass(row)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

func (repo schoolRepository) CreateClass(ctx context.Context, c school.ClassSection, exec ...core.DBExecutor) (school.ClassSection, error) {
	c.ID = uuid.New().String()
	row, err := repo.packClass(c)
	if err != nil {
		return school.ClassSection{}, err
	}
	q := `
	INSERT INTO class_section (` + classColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = getExec(repo.exec, exec).ExecContext(ctx, q,
		row.ID, row.Name, row.LevelID, row.PeriodID, row.TeacherID, row.AssistantID,
		row.TimeSlots, row.TotalSessions, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return school.ClassSection{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (school.ClassSection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.ClassSection{}, school.ErrClassNotFound
	}
	var row classRow
	q := `SELECT ` + classColumns + ` FROM class_section WHERE id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.ClassSection{}, school.ErrClassNotFound
		}
		return school.ClassSection{}, errors.Wrap(err, "finding class")
	}
	return repo.unpackClass(row)
}

func (repo schoolRepository) QueryClasses(ctx context.Context, filter *school.ClassFilter, exec ...core.DBExecutor) ([]school.ClassSection, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.PeriodID != "" {
			args = append(args, filter.PeriodID)
			conds = append(conds, fmt.Sprintf("c.period_id = $%d", len(args)))
		}
		if filter.LevelID != "" {
			args = append(args, filter.LevelID)
			conds = append(conds, fmt.Sprintf("c.level_id = $%d", len(args)))
		}
		if filter.TeacherID != "" {
			args = append(args, filter.TeacherID)
			mark := fmt.Sprintf("$%d", len(args))
			conds = append(conds, fmt.Sprintf("(c.teacher_id = %s OR c.assistant_id = %s)", mark, mark))
		}
		if filter.ActivePeriodsOnly {
			conds = append(conds, "c.period_id IN (SELECT id FROM academic_period WHERE is_active)")
		}
	}

	cols := make([]string, 0, 10)
	for _, col := range strings.Split(classColumns, ", ") {
		cols = append(cols, "c."+col)
	}
	q := `SELECT ` + strings.Join(cols, ", ") + ` FROM class_section c`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY c.name, c.id"

	var rows []classRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return repo.unpackClassSlice(rows)
}

func (repo schoolRepository) UpdateClass(ctx context.Context, c school.ClassSection, exec ...core.DBExecutor) (school.ClassSection, error) {
	row, err := repo.packClass(c)
	if err != nil {
		return school.ClassSection{}, err
	}
	q := `
	UPDATE class_section
	SET name = $2, level_id = $3, period_id = $4, teacher_id = $5, assistant_id = $6,
	    time_slots = $7, total_sessions = $8, updated_at = $9
	WHERE id = $1
	RETURNING ` + classColumns
	var updated classRow
	err = getExec(repo.exec, exec).GetContext(ctx, &updated, q,
		row.ID, row.Name, row.LevelID, row.PeriodID, row.TeacherID, row.AssistantID,
		row.TimeSlots, row.TotalSessions, row.UpdatedAt)
	if err == sql.ErrNoRows {
		return school.ClassSection{}, school.ErrClassNotFound
	}
	if err != nil {
		return school.ClassSection{}, errors.Wrap(err, "updating class")
	}
	return repo.unpackClass(updated)
}

// sessions

func (repo schoolRepository) unpackSession(row sessionRow) school.ScheduledSession {
	return school.ScheduledSession{ID: row.ID, ClassID: row.ClassID, Date: row.Date.Time}
}

func (repo schoolRepository) CreateSession(ctx context.Context, s school.ScheduledSession, exec ...core.DBExecutor) (school.ScheduledSession, error) {
	s.ID = uuid.New().String()

	// same (class, date) is a no-op; the existing session wins
	q := `
	WITH ins AS (
		INSERT INTO scheduled_session (` + sessionColumns + `)
		VALUES ($1, $2, $3)
		ON CONFLICT (class_id, date) DO NOTHING
		RETURNING ` + sessionColumns + `
	)
	SELECT ` + sessionColumns + ` FROM ins
	UNION ALL
	SELECT ` + sessionColumns + ` FROM scheduled_session WHERE class_id = $2 AND date = $3
	LIMIT 1`
	var row sessionRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, s.ID, s.ClassID, s.Date.UTC()); err != nil {
		return school.ScheduledSession{}, errors.Wrap(err, "inserting session")
	}
	return repo.unpackSession(row), nil
}

func (repo schoolRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (school.ScheduledSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return school.ScheduledSession{}, school.ErrSessionNotFound
	}
	var row sessionRow
	q := `SELECT ` + sessionColumns + ` FROM scheduled_session WHERE id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.ScheduledSession{}, school.ErrSessionNotFound
		}
		return school.ScheduledSession{}, errors.Wrap(err, "finding session")
	}
	return repo.unpackSession(row), nil
}

func (repo schoolRepository) QuerySessions(ctx context.Context, classID string, exec ...core.DBExecutor) ([]school.ScheduledSession, error) {
	var rows []sessionRow
	q := `SELECT ` + sessionColumns + ` FROM scheduled_session WHERE class_id = $1 ORDER BY date`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]school.ScheduledSession, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, repo.unpackSession(row))
	}
	return sessions, nil
}

func (repo schoolRepository) DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM scheduled_session WHERE id = $1`, id)
	if err != nil {
		return 0, errors.Wrap(err, "deleting session")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting session")
	}
	return int(cnt), nil
}

// roster

func (repo schoolRepository) AddMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error) {
	q := `
	INSERT INTO roster (class_id, student_id, enrolled_at)
	VALUES ($1, $2, now())
	ON CONFLICT (class_id, student_id) DO NOTHING`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, classID, studentID)
	if err != nil {
		return false, errors.Wrap(err, "adding roster member")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "adding roster member")
	}
	return cnt > 0, nil
}

func (repo schoolRepository) RemoveMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`DELETE FROM roster WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return false, errors.Wrap(err, "removing roster member")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "removing roster member")
	}
	return cnt > 0, nil
}

func (repo schoolRepository) QueryMemberIDs(ctx context.Context, classID string, exec ...core.DBExecutor) ([]string, error) {
	var ids []string
	q := `SELECT student_id FROM roster WHERE class_id = $1 ORDER BY enrolled_at, student_id`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &ids, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying roster members")
	}
	return ids, nil
}

func (repo schoolRepository) IsMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM roster WHERE class_id = $1 AND student_id = $2)`
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, classID, studentID); err != nil {
		return false, errors.Wrap(err, "checking roster membership")
	}
	return exists, nil
}
