package grading

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound    = errors.New("grade record not found")
	ErrNotEnrolled = errors.New("student is not enrolled in this class")

	hundred = decimal.NewFromInt(100)
)

type (
	Repository interface {
		// EnsureRecord inserts rec unless a record already exists for its
		// (class, student) pair; reports whether a row was created. The write
		// must be a single conditional insert, never read-then-write.
		EnsureRecord(ctx context.Context, rec Record, exec ...core.DBExecutor) (bool, error)
		GetRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (Record, error)
		QueryClassRecords(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Record, error)
		QueryStudentRecords(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Record, error)
		// UpsertScores updates the record's scores if the (class, student)
		// record exists, else creates it; a single atomic upsert.
		UpsertScores(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		DeleteRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (int, error)
	}

	// SessionSource supplies the attendance denominator; implemented by
	// school.Service.
	SessionSource interface {
		EffectiveSessionCount(ctx context.Context, classID string) (int, error)
	}

	// AttendanceSource supplies present counts; implemented by attendance.Service.
	AttendanceSource interface {
		CountPresent(ctx context.Context, classID, studentID string) (int, error)
	}

	// Roster guards grade entry against students who are not on the class
	// roster; implemented by school.Service.
	Roster interface {
		IsMember(ctx context.Context, classID, studentID string) (bool, error)
	}

	Service struct {
		cfg        Config
		repo       Repository
		sessions   SessionSource
		attendance AttendanceSource
		roster     Roster
	}
)

func NewService(cfg Config, repo Repository) *Service {
	return &Service{cfg: cfg, repo: repo}
}

func (svc *Service) Config() Config { return svc.cfg }

// BindSources wires the session, attendance and roster collaborators. The
// grade ledger is constructed before them (the roster coordinator needs it),
// so the binding happens in a second step.
func (svc *Service) BindSources(sessions SessionSource, attendance AttendanceSource, roster Roster) {
	svc.sessions = sessions
	svc.attendance = attendance
	svc.roster = roster
}

// EnsureRecord creates a zero-valued record for (class, student) if none
// exists; idempotent. The roster coordinator calls it on every enrollment so
// downstream reporting never has to null-check a missing grade row.
func (svc *Service) EnsureRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) error {
	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.New().String(),
		ClassID:   classID,
		StudentID: studentID,
		Scores:    svc.cfg.ZeroScores(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := svc.repo.EnsureRecord(ctx, rec, exec...)
	return err
}

// UpsertComponents validates the given component scores and updates or creates
// the student's record. Unknown component names are rejected; each score must
// lie within [0, 20].
func (svc *Service) UpsertComponents(ctx context.Context, classID, studentID string, scores Scores) (Record, error) {
	if len(scores) == 0 {
		return Record{}, core.NewValidationError(errors.New("no scores provided"))
	}
	for _, name := range svc.cfg.Components {
		val, ok := scores[name]
		if !ok {
			continue
		}
		if val.LessThan(ScoreMin) || val.GreaterThan(ScoreMax) {
			return Record{}, &OutOfRangeError{Component: name, Value: val}
		}
	}
	for name := range scores {
		if !svc.cfg.hasComponent(name) {
			return Record{}, core.NewValidationError(nil, core.FieldError{
				Field: name, Error: "unknown grade component",
			})
		}
	}

	if svc.roster != nil {
		enrolled, err := svc.roster.IsMember(ctx, classID, studentID)
		if err != nil {
			return Record{}, err
		}
		if !enrolled {
			return Record{}, ErrNotEnrolled
		}
	}

	now := time.Now().UTC()
	merged := svc.cfg.ZeroScores()
	if existing, err := svc.repo.GetRecord(ctx, classID, studentID); err == nil {
		for name, val := range existing.Scores {
			merged[name] = val
		}
	} else if err != ErrNotFound {
		return Record{}, err
	}
	for name, val := range scores {
		merged[name] = val
	}

	rec := Record{
		ID:        uuid.New().String(),
		ClassID:   classID,
		StudentID: studentID,
		Scores:    merged,
		CreatedAt: now,
		UpdatedAt: now,
	}
	out, err := svc.repo.UpsertScores(ctx, rec)
	if err == core.ErrConflict {
		// lost a race with a concurrent upsert; retry once
		out, err = svc.repo.UpsertScores(ctx, rec)
	}
	return out, err
}

func (svc *Service) GetRecord(ctx context.Context, classID, studentID string) (Record, error) {
	return svc.repo.GetRecord(ctx, classID, studentID)
}

func (svc *Service) ClassRecords(ctx context.Context, classID string) ([]Record, error) {
	return svc.repo.QueryClassRecords(ctx, classID)
}

func (svc *Service) StudentRecords(ctx context.Context, studentID string) ([]Record, error) {
	return svc.repo.QueryStudentRecords(ctx, studentID)
}

// DeleteRecord removes the (class, student) grade record. Unlike attendance,
// grades are not retained once a student leaves the roster.
func (svc *Service) DeleteRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) error {
	_, err := svc.repo.DeleteRecord(ctx, classID, studentID, exec...)
	return err
}

// Average is the arithmetic mean of the configured components rounded to
// 2 decimal places; components missing from the record count as zero. The
// result is invariant under component reordering and always lies in [0, 20].
func (svc *Service) Average(rec Record) decimal.Decimal {
	n := len(svc.cfg.Components)
	if n == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, name := range svc.cfg.Components {
		sum = sum.Add(rec.Scores[name])
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// AttendancePct is round(present / effectiveSessionCount * 100, 2).
// A zero denominator yields 0; never a division by zero.
func (svc *Service) AttendancePct(ctx context.Context, classID, studentID string) (decimal.Decimal, error) {
	total, err := svc.sessions.EffectiveSessionCount(ctx, classID)
	if err != nil {
		return decimal.Zero, err
	}
	if total == 0 {
		return decimal.Zero, nil
	}
	present, err := svc.attendance.CountPresent(ctx, classID, studentID)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(int64(present)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2), nil
}

// StatusOf derives the approval status from an already-computed average and
// attendance percentage.
func (svc *Service) StatusOf(avg, attendancePct decimal.Decimal) string {
	if avg.GreaterThanOrEqual(svc.cfg.GradeThreshold) &&
		attendancePct.GreaterThanOrEqual(svc.cfg.AttendanceThreshold) {
		return StatusApproved
	}
	return StatusDisapproved
}

// ApprovalStatus reports whether the student passes the class under the
// configured thresholds. A missing grade record counts as an all-zero one.
func (svc *Service) ApprovalStatus(ctx context.Context, classID, studentID string) (string, error) {
	rec, err := svc.repo.GetRecord(ctx, classID, studentID)
	if err != nil && err != ErrNotFound {
		return "", err
	}
	pct, err := svc.AttendancePct(ctx, classID, studentID)
	if err != nil {
		return "", err
	}
	return svc.StatusOf(svc.Average(rec), pct), nil
}
