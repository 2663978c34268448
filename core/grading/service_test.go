package grading_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/tests"
)

var ctx = context.Background()

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newConfig(t *testing.T, components []string, gradeThr, attThr string) grading.Config {
	cfg, err := grading.NewConfig(core.GradingConfig{
		Components:          components,
		GradeThreshold:      gradeThr,
		AttendanceThreshold: attThr,
	})
	if err != nil {
		t.Fatalf("NewConfig() failed: %v", err)
	}
	return cfg
}

func Test_Service_Average(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		scores     grading.Scores
		want       string
	}{
		{name: "empty record", components: []string{"n1", "n2", "n3", "n4"}, scores: nil, want: "0"},
		{
			name: "three components", components: []string{"n1", "n2", "n3"},
			scores: grading.Scores{"n1": dec("12"), "n2": dec("13"), "n3": dec("14")},
			want:   "13",
		},
		{
			name: "missing components count as zero", components: []string{"n1", "n2", "n3", "n4"},
			scores: grading.Scores{"n1": dec("20")},
			want:   "5",
		},
		{
			name: "rounds to 2 places", components: []string{"n1", "n2", "n3"},
			scores: grading.Scores{"n1": dec("10"), "n2": dec("10"), "n3": dec("11")},
			want:   "10.33",
		},
		{
			name: "no drift on decimal inputs", components: []string{"n1", "n2", "n3", "n4"},
			scores: grading.Scores{"n1": dec("10.1"), "n2": dec("10.2"), "n3": dec("10.3"), "n4": dec("10.4")},
			want:   "10.25",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := grading.NewService(newConfig(t, tt.components, "10.5", "75"), nil)
			got := svc.Average(grading.Record{Scores: tt.scores})
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Average() = %s; want %s", got, tt.want)
			}
		})
	}
}

func Test_Service_Average_reorderInvariant(t *testing.T) {
	scores := grading.Scores{"n1": dec("7.5"), "n2": dec("18"), "n3": dec("3"), "n4": dec("11.25")}

	svc1 := grading.NewService(newConfig(t, []string{"n1", "n2", "n3", "n4"}, "10.5", "75"), nil)
	svc2 := grading.NewService(newConfig(t, []string{"n4", "n2", "n1", "n3"}, "10.5", "75"), nil)

	avg1 := svc1.Average(grading.Record{Scores: scores})
	avg2 := svc2.Average(grading.Record{Scores: scores})
	if !avg1.Equal(avg2) {
		t.Errorf("Average() not invariant under component reordering: %s != %s", avg1, avg2)
	}
}

func Test_Service_StatusOf(t *testing.T) {
	svc := grading.NewService(newConfig(t, []string{"n1", "n2", "n3", "n4"}, "10.5", "75"), nil)

	tests := []struct {
		name     string
		avg, pct string
		want     string
	}{
		{name: "both above", avg: "11", pct: "80", want: grading.StatusApproved},
		{name: "grade ok, attendance short", avg: "11", pct: "60", want: grading.StatusDisapproved},
		{name: "attendance ok, grade short", avg: "9.9", pct: "90", want: grading.StatusDisapproved},
		{name: "both exactly at threshold", avg: "10.5", pct: "75", want: grading.StatusApproved},
		{name: "grade just under", avg: "10.49", pct: "100", want: grading.StatusDisapproved},
		{name: "attendance just under", avg: "20", pct: "74.99", want: grading.StatusDisapproved},
		{name: "both zero", avg: "0", pct: "0", want: grading.StatusDisapproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.StatusOf(dec(tt.avg), dec(tt.pct)); got != tt.want {
				t.Errorf("StatusOf(%s, %s) = %s; want %s", tt.avg, tt.pct, got, tt.want)
			}
		})
	}
}

func Test_Service_UpsertComponents(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	student := testutil.CreatePerson(t, svcs.PersonRepo, "Stud", "stud", "stud@test.cd", identity.RoleStudent, true)
	outsider := testutil.CreatePerson(t, svcs.PersonRepo, "Out", "out", "out@test.cd", identity.RoleStudent, true)

	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")
	class := testutil.CreateClass(t, svcs.School, "Go 101", level.ID, period.ID, teacher.ID, 12)
	testutil.Enroll(t, svcs.School, class.ID, student.ID)

	t.Run("out of range high", func(t *testing.T) {
		_, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{"n1": dec("20.01")})
		var oore *grading.OutOfRangeError
		if !errors.As(err, &oore) {
			t.Errorf("UpsertComponents() error = %v; want OutOfRangeError", err)
		}
	})
	t.Run("out of range negative", func(t *testing.T) {
		_, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{"n2": dec("-0.5")})
		var oore *grading.OutOfRangeError
		if !errors.As(err, &oore) {
			t.Errorf("UpsertComponents() error = %v; want OutOfRangeError", err)
		}
	})
	t.Run("unknown component", func(t *testing.T) {
		_, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{"n9": dec("10")})
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("UpsertComponents() error = %v; want ValidationError", err)
		}
	})
	t.Run("empty scores", func(t *testing.T) {
		_, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, nil)
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("UpsertComponents() error = %v; want ValidationError", err)
		}
	})
	t.Run("not enrolled", func(t *testing.T) {
		_, err := svcs.Grades.UpsertComponents(ctx, class.ID, outsider.ID, grading.Scores{"n1": dec("10")})
		if err != grading.ErrNotEnrolled {
			t.Errorf("UpsertComponents() error = %v; want %v", err, grading.ErrNotEnrolled)
		}
	})
	t.Run("boundary values accepted", func(t *testing.T) {
		rec, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{"n1": dec("0"), "n2": dec("20")})
		if err != nil {
			t.Fatalf("UpsertComponents() failed: %v", err)
		}
		if !rec.Scores["n1"].Equal(dec("0")) || !rec.Scores["n2"].Equal(dec("20")) {
			t.Errorf("UpsertComponents() scores = %v", rec.Scores)
		}
	})
	t.Run("partial update merges with existing", func(t *testing.T) {
		if _, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{"n1": dec("12")}); err != nil {
			t.Fatalf("UpsertComponents() failed: %v", err)
		}
		if _, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{"n2": dec("14")}); err != nil {
			t.Fatalf("UpsertComponents() failed: %v", err)
		}

		rec, err := svcs.Grades.GetRecord(ctx, class.ID, student.ID)
		if err != nil {
			t.Fatalf("GetRecord() failed: %v", err)
		}
		want := grading.Scores{"n1": dec("12"), "n2": dec("14"), "n3": dec("0"), "n4": dec("0")}
		for name, val := range want {
			if !rec.Scores[name].Equal(val) {
				t.Errorf("Scores[%s] = %s; want %s", name, rec.Scores[name], val)
			}
		}
	})
}

func Test_Service_AttendancePct(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	student := testutil.CreatePerson(t, svcs.PersonRepo, "Stud", "stud", "stud@test.cd", identity.RoleStudent, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")

	t.Run("zero denominator yields zero", func(t *testing.T) {
		class := testutil.CreateClass(t, svcs.School, "Empty", level.ID, period.ID, teacher.ID, 0)
		testutil.Enroll(t, svcs.School, class.ID, student.ID)

		pct, err := svcs.Grades.AttendancePct(ctx, class.ID, student.ID)
		if err != nil {
			t.Fatalf("AttendancePct() failed: %v", err)
		}
		if !pct.IsZero() {
			t.Errorf("AttendancePct() = %s; want 0", pct)
		}
	})

	t.Run("declared total when no sessions scheduled", func(t *testing.T) {
		class := testutil.CreateClass(t, svcs.School, "Declared", level.ID, period.ID, teacher.ID, 10)
		testutil.Enroll(t, svcs.School, class.ID, student.ID)

		pct, err := svcs.Grades.AttendancePct(ctx, class.ID, student.ID)
		if err != nil {
			t.Fatalf("AttendancePct() failed: %v", err)
		}
		if !pct.IsZero() {
			t.Errorf("AttendancePct() = %s; want 0 (no presence recorded)", pct)
		}
	})

	t.Run("scheduled sessions win over declared total", func(t *testing.T) {
		class := testutil.CreateClass(t, svcs.School, "Scheduled", level.ID, period.ID, teacher.ID, 10)
		testutil.Enroll(t, svcs.School, class.ID, student.ID)
		dates := []time.Time{
			testutil.Date(2026, time.March, 2),
			testutil.Date(2026, time.March, 9),
			testutil.Date(2026, time.March, 16),
			testutil.Date(2026, time.March, 23),
		}
		testutil.ScheduleSessions(t, svcs.School, class.ID, dates...)

		res, err := svcs.Attendance.SaveBatch(ctx, class.ID, []attendance.StudentEntries{{
			StudentID: student.ID,
			Entries: []attendance.Entry{
				{Date: dates[0], Present: true},
				{Date: dates[1], Present: true},
				{Date: dates[2], Present: true},
			},
		}})
		if err != nil {
			t.Fatalf("SaveBatch() failed: %v", err)
		}
		if len(res.Errors) > 0 {
			t.Fatalf("SaveBatch() errors = %v", res.Errors)
		}

		// 3 of 4 scheduled sessions; the declared total of 10 is ignored
		pct, err := svcs.Grades.AttendancePct(ctx, class.ID, student.ID)
		if err != nil {
			t.Fatalf("AttendancePct() failed: %v", err)
		}
		if !pct.Equal(dec("75")) {
			t.Errorf("AttendancePct() = %s; want 75", pct)
		}
	})
}

func Test_Service_ApprovalStatus(t *testing.T) {
	svcs := testutil.NewServices(t)

	teacher := testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true)
	student := testutil.CreatePerson(t, svcs.PersonRepo, "Stud", "stud", "stud@test.cd", identity.RoleStudent, true)
	period := testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true)
	level := testutil.CreateLevel(t, svcs.School, "L1")
	class := testutil.CreateClass(t, svcs.School, "Go 101", level.ID, period.ID, teacher.ID, 0)
	testutil.Enroll(t, svcs.School, class.ID, student.ID)

	dates := []time.Time{
		testutil.Date(2026, time.April, 6),
		testutil.Date(2026, time.April, 13),
		testutil.Date(2026, time.April, 20),
		testutil.Date(2026, time.April, 27),
	}
	testutil.ScheduleSessions(t, svcs.School, class.ID, dates...)

	t.Run("missing grade record counts as all-zero", func(t *testing.T) {
		svcs2 := testutil.NewServices(t)
		cls := testutil.CreateClass(t, svcs2.School,
			"NoGrades",
			testutil.CreateLevel(t, svcs2.School, "L1").ID,
			testutil.CreatePeriod(t, svcs2.School, "2026-S1", 2026, true).ID,
			testutil.CreatePerson(t, svcs2.PersonRepo, "T", "t", "t@test.cd", identity.RoleTeacher, true).ID,
			0,
		)
		// no enrollment, no grade record, no sessions
		status, err := svcs2.Grades.ApprovalStatus(ctx, cls.ID, "nobody")
		if err != nil {
			t.Fatalf("ApprovalStatus() failed: %v", err)
		}
		if status != grading.StatusDisapproved {
			t.Errorf("ApprovalStatus() = %s; want %s", status, grading.StatusDisapproved)
		}
	})

	t.Run("approved when both thresholds met", func(t *testing.T) {
		// average 11, attendance 100%
		_, err := svcs.Grades.UpsertComponents(ctx, class.ID, student.ID, grading.Scores{
			"n1": dec("11"), "n2": dec("11"), "n3": dec("11"), "n4": dec("11"),
		})
		if err != nil {
			t.Fatalf("UpsertComponents() failed: %v", err)
		}
		entries := make([]attendance.Entry, 0, len(dates))
		for _, d := range dates {
			entries = append(entries, attendance.Entry{Date: d, Present: true})
		}
		if _, err = svcs.Attendance.SaveBatch(ctx, class.ID, []attendance.StudentEntries{{StudentID: student.ID, Entries: entries}}); err != nil {
			t.Fatalf("SaveBatch() failed: %v", err)
		}

		status, err := svcs.Grades.ApprovalStatus(ctx, class.ID, student.ID)
		if err != nil {
			t.Fatalf("ApprovalStatus() failed: %v", err)
		}
		if status != grading.StatusApproved {
			t.Errorf("ApprovalStatus() = %s; want %s", status, grading.StatusApproved)
		}
	})

	t.Run("disapproved when attendance drops below threshold", func(t *testing.T) {
		// mark 2 of 4 absent: 50% < 75%
		_, err := svcs.Attendance.SaveBatch(ctx, class.ID, []attendance.StudentEntries{{
			StudentID: student.ID,
			Entries: []attendance.Entry{
				{Date: dates[2], Present: false},
				{Date: dates[3], Present: false},
			},
		}})
		if err != nil {
			t.Fatalf("SaveBatch() failed: %v", err)
		}

		status, err := svcs.Grades.ApprovalStatus(ctx, class.ID, student.ID)
		if err != nil {
			t.Fatalf("ApprovalStatus() failed: %v", err)
		}
		if status != grading.StatusDisapproved {
			t.Errorf("ApprovalStatus() = %s; want %s", status, grading.StatusDisapproved)
		}
	})
}
