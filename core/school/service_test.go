package school_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/tests"
)

var ctx = context.Background()

func Test_Service_CreatePeriod(t *testing.T) {
	svcs := testutil.NewServices(t)

	p := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	if p.ID == "" {
		t.Error("CreatePeriod() returned no ID")
	}

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svcs.School.CreatePeriod(ctx, school.NewPeriod{
			Name:      "2026-S1",
			Year:      2026,
			StartDate: testutil.Date(2026, time.January, 15),
			EndDate:   testutil.Date(2026, time.June, 30),
		})
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("CreatePeriod() error = %v; want ValidationError", err)
		}
	})

	t.Run("active filter", func(t *testing.T) {
		testutil.CreatePeriod(t, svcs.School, "2025-S2", 2025, false)

		active, err := svcs.School.QueryPeriods(ctx, true)
		if err != nil {
			t.Fatalf("QueryPeriods() failed: %v", err)
		}
		if len(active) != 1 || active[0].Name != "2026-S1" {
			t.Errorf("QueryPeriods(activeOnly) = %v; want only 2026-S1", active)
		}

		all, err := svcs.School.QueryPeriods(ctx, false)
		if err != nil {
			t.Fatalf("QueryPeriods() failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("len(QueryPeriods()) = %d; want 2", len(all))
		}
	})
}

func Test_Service_CreateLevel_duplicate(t *testing.T) {
	svcs := testutil.NewServices(t)

	testutil.CreateLevel(t, svcs.School, "Beginners")
	_, err := svcs.School.CreateLevel(ctx, school.NewLevel{Name: "Beginners"})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("CreateLevel() error = %v; want ValidationError", err)
	}
}

func Test_Service_CreateClass_refChecks(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	student := testutil.CreatePerson(t, svcs.PersonRepo, "Stud", "stud", "stud@test.cd", identity.RoleStudent, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")

	tests := []struct {
		name    string
		nc      school.NewClass
		wantErr error
	}{
		{
			name: "ok",
			nc:   school.NewClass{Name: "Go 101", LevelID: level.ID, PeriodID: period.ID, TeacherID: teacher.ID},
		},
		{
			name: "no refs is fine",
			nc:   school.NewClass{Name: "Floating"},
		},
		{
			name:    "unknown level",
			nc:      school.NewClass{Name: "X", LevelID: "nope", PeriodID: period.ID},
			wantErr: school.ErrLevelNotFound,
		},
		{
			name:    "unknown period",
			nc:      school.NewClass{Name: "X", LevelID: level.ID, PeriodID: "nope"},
			wantErr: school.ErrPeriodNotFound,
		},
		{
			name:    "unknown teacher",
			nc:      school.NewClass{Name: "X", TeacherID: "nope"},
			wantErr: identity.ErrNotFound,
		},
		{
			name:    "teacher ref must hold the teacher role",
			nc:      school.NewClass{Name: "X", TeacherID: student.ID},
			wantErr: school.ErrNotTeacher,
		},
		{
			name:    "assistant ref must hold the teacher role",
			nc:      school.NewClass{Name: "X", TeacherID: teacher.ID, AssistantID: student.ID},
			wantErr: school.ErrNotTeacher,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svcs.School.CreateClass(ctx, tt.nc)
			if err != tt.wantErr {
				t.Errorf("CreateClass() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_NewClass_timeSlotValidation(t *testing.T) {
	tests := []struct {
		name    string
		slot    school.TimeSlot
		wantErr bool
	}{
		{name: "valid", slot: school.TimeSlot{Weekday: time.Monday, Start: "18:00", End: "20:00"}},
		{name: "bad start", slot: school.TimeSlot{Weekday: time.Monday, Start: "25:00", End: "20:00"}, wantErr: true},
		{name: "bad end", slot: school.TimeSlot{Weekday: time.Monday, Start: "18:00", End: "garbage"}, wantErr: true},
		{name: "missing start", slot: school.TimeSlot{Weekday: time.Monday, End: "20:00"}, wantErr: true},
		{name: "bad weekday", slot: school.TimeSlot{Weekday: time.Weekday(9), Start: "18:00", End: "20:00"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := school.NewClass{Name: "Go 101", TimeSlots: []school.TimeSlot{tt.slot}}
			err := nc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_Service_sessions(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")
	class := testutil.CreateClass(t, svcs.School, "Go 101", level.ID, period.ID, teacher.ID, 10)

	date := testutil.Date(2026, time.March, 2)

	t.Run("unknown class", func(t *testing.T) {
		_, err := svcs.School.AddSession(ctx, school.NewSession{ClassID: "nope", Date: date})
		if err != school.ErrClassNotFound {
			t.Errorf("AddSession() error = %v; want %v", err, school.ErrClassNotFound)
		}
	})

	t.Run("scheduling the same date twice is a no-op", func(t *testing.T) {
		s1, err := svcs.School.AddSession(ctx, school.NewSession{ClassID: class.ID, Date: date})
		if err != nil {
			t.Fatalf("AddSession() failed: %v", err)
		}
		s2, err := svcs.School.AddSession(ctx, school.NewSession{ClassID: class.ID, Date: date})
		if err != nil {
			t.Fatalf("AddSession() failed: %v", err)
		}
		if s1.ID != s2.ID {
			t.Errorf("AddSession() created a duplicate: %s != %s", s1.ID, s2.ID)
		}

		sessions, err := svcs.School.SessionsFor(ctx, class.ID)
		if err != nil {
			t.Fatalf("SessionsFor() failed: %v", err)
		}
		if len(sessions) != 1 {
			t.Errorf("len(SessionsFor()) = %d; want 1", len(sessions))
		}
	})

	t.Run("sessions ordered by date", func(t *testing.T) {
		testutil.ScheduleSessions(t, svcs.School, class.ID,
			testutil.Date(2026, time.March, 16),
			testutil.Date(2026, time.March, 9),
		)
		sessions, err := svcs.School.SessionsFor(ctx, class.ID)
		if err != nil {
			t.Fatalf("SessionsFor() failed: %v", err)
		}
		for i := 1; i < len(sessions); i++ {
			if sessions[i].Date.Before(sessions[i-1].Date) {
				t.Errorf("SessionsFor() out of order: %v", sessions)
			}
		}
	})

	t.Run("remove", func(t *testing.T) {
		sessions, _ := svcs.School.SessionsFor(ctx, class.ID)
		if err := svcs.School.RemoveSession(ctx, sessions[0].ID); err != nil {
			t.Fatalf("RemoveSession() failed: %v", err)
		}
		if err := svcs.School.RemoveSession(ctx, sessions[0].ID); err != school.ErrSessionNotFound {
			t.Errorf("RemoveSession() error = %v; want %v", err, school.ErrSessionNotFound)
		}
	})
}

func Test_Service_EffectiveSessionCount(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")
	class := testutil.CreateClass(t, svcs.School, "Go 101", level.ID, period.ID, teacher.ID, 10)

	n, err := svcs.School.EffectiveSessionCount(ctx, class.ID)
	if err != nil {
		t.Fatalf("EffectiveSessionCount() failed: %v", err)
	}
	if n != 10 {
		t.Errorf("EffectiveSessionCount() = %d; want declared 10", n)
	}

	// once sessions exist, the catalog wins regardless of the declared total
	testutil.ScheduleSessions(t, svcs.School, class.ID,
		testutil.Date(2026, time.March, 2),
		testutil.Date(2026, time.March, 9),
	)
	if n, err = svcs.School.EffectiveSessionCount(ctx, class.ID); err != nil {
		t.Fatalf("EffectiveSessionCount() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("EffectiveSessionCount() = %d; want 2", n)
	}
}

func Test_Service_roster(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	zara := testutil.CreatePerson(t, svcs.PersonRepo, "Zara", "zara", "zara@test.cd", identity.RoleStudent, true)
	abel := testutil.CreatePerson(t, svcs.PersonRepo, "Abel", "abel", "abel@test.cd", identity.RoleStudent, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")
	class := testutil.CreateClass(t, svcs.School, "Go 101", level.ID, period.ID, teacher.ID, 4)
	testutil.ScheduleSessions(t, svcs.School, class.ID, testutil.Date(2026, time.March, 2))

	t.Run("enroll provisions a zero grade record", func(t *testing.T) {
		if err := svcs.School.Enroll(ctx, class.ID, zara.ID); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
		rec, err := svcs.Grades.GetRecord(ctx, class.ID, zara.ID)
		if err != nil {
			t.Fatalf("GetRecord() failed: %v", err)
		}
		for name, val := range rec.Scores {
			if !val.IsZero() {
				t.Errorf("Scores[%s] = %s; want 0", name, val)
			}
		}
	})

	t.Run("double enrollment is a no-op", func(t *testing.T) {
		if _, err := svcs.Grades.UpsertComponents(ctx, class.ID, zara.ID, grading.Scores{"n1": mustDec(t, "15")}); err != nil {
			t.Fatalf("UpsertComponents() failed: %v", err)
		}
		if err := svcs.School.Enroll(ctx, class.ID, zara.ID); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}

		// the existing grade record is untouched
		rec, err := svcs.Grades.GetRecord(ctx, class.ID, zara.ID)
		if err != nil {
			t.Fatalf("GetRecord() failed: %v", err)
		}
		if !rec.Scores["n1"].Equal(mustDec(t, "15")) {
			t.Errorf("Scores[n1] = %s; want 15", rec.Scores["n1"])
		}

		members, err := svcs.School.Members(ctx, class.ID)
		if err != nil {
			t.Fatalf("Members() failed: %v", err)
		}
		if len(members) != 1 {
			t.Errorf("len(Members()) = %d; want 1", len(members))
		}
	})

	t.Run("only students can enroll", func(t *testing.T) {
		if err := svcs.School.Enroll(ctx, class.ID, teacher.ID); err != school.ErrNotStudent {
			t.Errorf("Enroll() error = %v; want %v", err, school.ErrNotStudent)
		}
	})

	t.Run("members sorted by name", func(t *testing.T) {
		if err := svcs.School.Enroll(ctx, class.ID, abel.ID); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
		members, err := svcs.School.Members(ctx, class.ID)
		if err != nil {
			t.Fatalf("Members() failed: %v", err)
		}
		if len(members) != 2 || members[0].Name != "Abel" || members[1].Name != "Zara" {
			t.Errorf("Members() = %v; want [Abel Zara]", members)
		}
	})

	t.Run("unenroll deletes the grade record but keeps attendance", func(t *testing.T) {
		// record presence first so there is history to retain
		if _, err := svcs.Attendance.Matrix(ctx, class.ID); err != nil {
			t.Fatalf("Matrix() failed: %v", err)
		}

		if err := svcs.School.Unenroll(ctx, class.ID, zara.ID); err != nil {
			t.Fatalf("Unenroll() failed: %v", err)
		}

		if _, err := svcs.Grades.GetRecord(ctx, class.ID, zara.ID); err != grading.ErrNotFound {
			t.Errorf("GetRecord() error = %v; want %v", err, grading.ErrNotFound)
		}

		recs, err := svcs.Attendance.ClassRecords(ctx, class.ID)
		if err != nil {
			t.Fatalf("ClassRecords() failed: %v", err)
		}
		var kept int
		for _, r := range recs {
			if r.StudentID == zara.ID {
				kept++
			}
		}
		if kept == 0 {
			t.Error("unenrollment dropped attendance history; it must be retained")
		}
	})

	t.Run("unenroll requires membership", func(t *testing.T) {
		if err := svcs.School.Unenroll(ctx, class.ID, zara.ID); err != school.ErrNotEnrolled {
			t.Errorf("Unenroll() error = %v; want %v", err, school.ErrNotEnrolled)
		}
	})
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("mustDec(%s) failed: %v", s, err)
	}
	return d
}
