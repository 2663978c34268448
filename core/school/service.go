package school

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/identity"
)

var (
	ErrPeriodNotFound  = errors.New("academic period not found")
	ErrLevelNotFound   = errors.New("level not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrSessionNotFound = errors.New("scheduled session not found")
	ErrPeriodExists    = errors.New("an academic period with this name already exists")
	ErrLevelExists     = errors.New("a level with this name already exists")
	ErrNotEnrolled     = errors.New("student is not enrolled in this class")
	ErrNotStudent      = errors.New("person is not a student")
	ErrNotTeacher      = errors.New("person is not a teacher")
)

type (
	Repository interface {
		// periods
		CreatePeriod(ctx context.Context, p AcademicPeriod, exec ...core.DBExecutor) (AcademicPeriod, error)
		GetPeriod(ctx context.Context, id string, exec ...core.DBExecutor) (AcademicPeriod, error)
		QueryPeriods(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]AcademicPeriod, error)
		UpdatePeriod(ctx context.Context, p AcademicPeriod, exec ...core.DBExecutor) (AcademicPeriod, error)

		// levels
		CreateLevel(ctx context.Context, l Level, exec ...core.DBExecutor) (Level, error)
		GetLevel(ctx context.Context, id string, exec ...core.DBExecutor) (Level, error)
		QueryLevels(ctx context.Context, exec ...core.DBExecutor) ([]Level, error)

		// classes
		CreateClass(ctx context.Context, c ClassSection, exec ...core.DBExecutor) (ClassSection, error)
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (ClassSection, error)
		QueryClasses(ctx context.Context, filter *ClassFilter, exec ...core.DBExecutor) ([]ClassSection, error)
		UpdateClass(ctx context.Context, c ClassSection, exec ...core.DBExecutor) (ClassSection, error)

		// sessions
		CreateSession(ctx context.Context, s ScheduledSession, exec ...core.DBExecutor) (ScheduledSession, error)
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (ScheduledSession, error)
		// QuerySessions returns a class's sessions ordered by date ascending.
		QuerySessions(ctx context.Context, classID string, exec ...core.DBExecutor) ([]ScheduledSession, error)
		DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) (int, error)

		// roster
		AddMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error)
		RemoveMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error)
		QueryMemberIDs(ctx context.Context, classID string, exec ...core.DBExecutor) ([]string, error)
		IsMember(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (bool, error)
	}

	// Directory resolves Person references; implemented by identity.Service.
	Directory interface {
		GetByID(ctx context.Context, id string) (identity.Person, error)
		QueryByIDs(ctx context.Context, ids []string) ([]identity.Person, error)
	}

	// GradeLedger is the slice of the grading service the roster coordinator
	// drives: every enrollment gets a zero-valued grade record, every removal
	// loses it. Calls receive the enclosing roster transaction.
	GradeLedger interface {
		EnsureRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) error
		DeleteRecord(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) error
	}

	Service struct {
		db     core.DB
		repo   Repository
		dir    Directory
		grades GradeLedger
	}
)

func NewService(db core.DB, repo Repository, dir Directory, grades GradeLedger) *Service {
	return &Service{db: db, repo: repo, dir: dir, grades: grades}
}

// Academic periods

func (svc *Service) CreatePeriod(ctx context.Context, np NewPeriod) (AcademicPeriod, error) {
	now := time.Now().UTC()
	p := AcademicPeriod{
		Name:      np.Name,
		Year:      np.Year,
		StartDate: core.NormalizeDate(np.StartDate),
		EndDate:   core.NormalizeDate(np.EndDate),
		IsActive:  np.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err := svc.repo.CreatePeriod(ctx, p)
	if err == ErrPeriodExists {
		return AcademicPeriod{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return p, err
}

func (svc *Service) GetPeriod(ctx context.Context, id string) (AcademicPeriod, error) {
	return svc.repo.GetPeriod(ctx, id)
}

func (svc *Service) QueryPeriods(ctx context.Context, activeOnly bool) ([]AcademicPeriod, error) {
	return svc.repo.QueryPeriods(ctx, activeOnly)
}

func (svc *Service) UpdatePeriod(ctx context.Context, p AcademicPeriod) (AcademicPeriod, error) {
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePeriod(ctx, p)
}

// Levels

func (svc *Service) CreateLevel(ctx context.Context, nl NewLevel) (Level, error) {
	l, err := svc.repo.CreateLevel(ctx, Level{Name: nl.Name})
	if err == ErrLevelExists {
		return Level{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return l, err
}

func (svc *Service) GetLevel(ctx context.Context, id string) (Level, error) {
	return svc.repo.GetLevel(ctx, id)
}

func (svc *Service) QueryLevels(ctx context.Context) ([]Level, error) {
	return svc.repo.QueryLevels(ctx)
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (ClassSection, error) {
	if err := svc.checkClassRefs(ctx, nc.LevelID, nc.PeriodID, nc.TeacherID, nc.AssistantID); err != nil {
		return ClassSection{}, err
	}
	now := time.Now().UTC()
	c := ClassSection{
		Name:          nc.Name,
		LevelID:       nc.LevelID,
		PeriodID:      nc.PeriodID,
		TeacherID:     nc.TeacherID,
		AssistantID:   nc.AssistantID,
		TimeSlots:     nc.TimeSlots,
		TotalSessions: nc.TotalSessions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateClass(ctx, c)
}

func (svc *Service) GetClass(ctx context.Context, id string) (ClassSection, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter *ClassFilter) ([]ClassSection, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

func (svc *Service) UpdateClass(ctx context.Context, id string, uc UpdateClass) (ClassSection, error) {
	orig, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return ClassSection{}, err
	}
	if err = uc.Validate(orig); err != nil {
		return ClassSection{}, err
	}

	c := orig
	c.Name = uc.Name
	if uc.LevelID != nil {
		c.LevelID = *uc.LevelID
	}
	if uc.PeriodID != nil {
		c.PeriodID = *uc.PeriodID
	}
	if uc.TeacherID != nil {
		c.TeacherID = *uc.TeacherID
	}
	if uc.AssistantID != nil {
		c.AssistantID = *uc.AssistantID
	}
	if uc.TimeSlots != nil {
		c.TimeSlots = uc.TimeSlots
	}
	if uc.TotalSessions != nil {
		c.TotalSessions = *uc.TotalSessions
	}
	if err = svc.checkClassRefs(ctx, c.LevelID, c.PeriodID, c.TeacherID, c.AssistantID); err != nil {
		return ClassSection{}, err
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *Service) checkClassRefs(ctx context.Context, levelID, periodID string, teacherIDs ...string) error {
	if levelID != "" {
		if _, err := svc.repo.GetLevel(ctx, levelID); err != nil {
			return err
		}
	}
	if periodID != "" {
		if _, err := svc.repo.GetPeriod(ctx, periodID); err != nil {
			return err
		}
	}
	for _, id := range teacherIDs {
		if id == "" {
			continue
		}
		p, err := svc.dir.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsTeacher() {
			return ErrNotTeacher
		}
	}
	return nil
}

// Session catalog

func (svc *Service) AddSession(ctx context.Context, ns NewSession) (ScheduledSession, error) {
	if _, err := svc.repo.GetClass(ctx, ns.ClassID); err != nil {
		return ScheduledSession{}, err
	}
	// scheduling the same date twice is a no-op; the existing session wins
	return svc.repo.CreateSession(ctx, ScheduledSession{ClassID: ns.ClassID, Date: ns.Date})
}

func (svc *Service) RemoveSession(ctx context.Context, id string) error {
	n, err := svc.repo.DeleteSession(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// SessionsFor returns the class's scheduled dates ordered ascending.
func (svc *Service) SessionsFor(ctx context.Context, classID string) ([]ScheduledSession, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySessions(ctx, classID)
}

// EffectiveSessionCount is the single source of truth for the attendance
// denominator: the scheduled session list when non-empty, the class's declared
// total otherwise. Attendance percentages must never be derived from an ad hoc
// count of attendance rows.
func (svc *Service) EffectiveSessionCount(ctx context.Context, classID string) (int, error) {
	c, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return 0, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, classID)
	if err != nil {
		return 0, err
	}
	if len(sessions) > 0 {
		return len(sessions), nil
	}
	return c.TotalSessions, nil
}

// Roster

// Enroll adds a student to the class roster and provisions their zero-valued
// grade record in the same transaction; enrolling an already-enrolled student
// is a no-op success.
func (svc *Service) Enroll(ctx context.Context, classID, studentID string) error {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return err
	}
	p, err := svc.dir.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !p.IsStudent() {
		return ErrNotStudent
	}

	return core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.AddMember(ctx, classID, studentID, tx); err != nil {
			return err
		}
		return svc.grades.EnsureRecord(ctx, classID, studentID, tx)
	})
}

// Unenroll removes a student from the roster and deletes their grade record in
// the same transaction. Attendance history is retained; Purge on the
// attendance ledger is the only path that removes it.
func (svc *Service) Unenroll(ctx context.Context, classID, studentID string) error {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return err
	}

	return core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		removed, err := svc.repo.RemoveMember(ctx, classID, studentID, tx)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotEnrolled
		}
		return svc.grades.DeleteRecord(ctx, classID, studentID, tx)
	})
}

// Members returns the class's current students sorted by name.
func (svc *Service) Members(ctx context.Context, classID string) ([]identity.Person, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	ids, err := svc.repo.QueryMemberIDs(ctx, classID)
	if err != nil {
		return nil, err
	}
	members, err := svc.dir.QueryByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Name == members[j].Name {
			return members[i].ID < members[j].ID
		}
		return members[i].Name < members[j].Name
	})
	return members, nil
}

func (svc *Service) IsMember(ctx context.Context, classID, studentID string) (bool, error) {
	return svc.repo.IsMember(ctx, classID, studentID)
}
