package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/report"
	"github.com/trezcool/darasa/core/school"
	emailsvc "github.com/trezcool/darasa/services/email"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

// Services is a fully wired service graph over the in-memory store.
type Services struct {
	DB         *dummydb.DB
	PersonRepo identity.Repository

	Persons    *identity.Service
	School     *school.Service
	Attendance *attendance.Service
	Grades     *grading.Service
	Reports    *report.Service
}

func NewServices(t *testing.T) *Services {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("NewServices() failed: %v", err)
	}

	gradeCfg, err := grading.NewConfig(core.Conf.Grading)
	if err != nil {
		t.Fatalf("NewServices() failed: %v", err)
	}

	personRepo := dummydb.NewPersonRepository(db)
	personSvc := identity.NewService(core.Conf, personRepo, emailsvc.NewConsoleServiceMock(core.Conf))
	gradeSvc := grading.NewService(gradeCfg, dummydb.NewGradingRepository(db))
	schoolSvc := school.NewService(db, dummydb.NewSchoolRepository(db), personSvc, gradeSvc)
	attendanceSvc := attendance.NewService(db, dummydb.NewAttendanceRepository(db), schoolSvc)
	gradeSvc.BindSources(schoolSvc, attendanceSvc, schoolSvc)
	reportSvc := report.NewService(schoolSvc, attendanceSvc, gradeSvc, personSvc)

	return &Services{
		DB:         db,
		PersonRepo: personRepo,
		Persons:    personSvc,
		School:     schoolSvc,
		Attendance: attendanceSvc,
		Grades:     gradeSvc,
		Reports:    reportSvc,
	}
}

func CreatePerson(
	t *testing.T,
	repo identity.Repository,
	name, uname, email, role string,
	isActive bool,
	createdAt ...time.Time,
) identity.Person {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := identity.Person{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	p, err := repo.CreatePerson(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePerson() failed: %v", err)
	}
	return p
}

func CreatePeriod(t *testing.T, svc *school.Service, name string, year int, isActive bool) school.AcademicPeriod {
	p, err := svc.CreatePeriod(context.Background(), school.NewPeriod{
		Name:      name,
		Year:      year,
		StartDate: Date(year, time.January, 15),
		EndDate:   Date(year, time.June, 30),
		IsActive:  isActive,
	})
	if err != nil {
		t.Fatalf("CreatePeriod() failed: %v", err)
	}
	return p
}

func CreateLevel(t *testing.T, svc *school.Service, name string) school.Level {
	l, err := svc.CreateLevel(context.Background(), school.NewLevel{Name: name})
	if err != nil {
		t.Fatalf("CreateLevel() failed: %v", err)
	}
	return l
}

func CreateClass(
	t *testing.T,
	svc *school.Service,
	name, levelID, periodID, teacherID string,
	totalSessions int,
) school.ClassSection {
	c, err := svc.CreateClass(context.Background(), school.NewClass{
		Name:          name,
		LevelID:       levelID,
		PeriodID:      periodID,
		TeacherID:     teacherID,
		TimeSlots:     []school.TimeSlot{{Weekday: time.Monday, Start: "18:00", End: "20:00"}},
		TotalSessions: totalSessions,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

func ScheduleSessions(t *testing.T, svc *school.Service, classID string, dates ...time.Time) []school.ScheduledSession {
	sessions := make([]school.ScheduledSession, 0, len(dates))
	for _, d := range dates {
		s, err := svc.AddSession(context.Background(), school.NewSession{ClassID: classID, Date: d})
		if err != nil {
			t.Fatalf("ScheduleSessions() failed: %v", err)
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func Enroll(t *testing.T, svc *school.Service, classID string, studentIDs ...string) {
	for _, id := range studentIDs {
		if err := svc.Enroll(context.Background(), classID, id); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
