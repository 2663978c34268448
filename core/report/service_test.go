package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/school"
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

// fixture: one class, two students, two sessions.
//   - Zara: avg 12, present at both sessions (100%)  -> Approved
//   - Abel: avg 0, present at one session (50%)      -> Disapproved
type fixture struct {
	svcs       *testutil.Services
	teacher    identity.Person
	zara, abel identity.Person
	period     school.AcademicPeriod
	class      school.ClassSection
	dates      []time.Time
}

func newFixture(t *testing.T) fixture {
	svcs := testutil.NewServices(t)

	f := fixture{
		svcs:    svcs,
		teacher: testutil.CreatePerson(t, svcs.PersonRepo, "Teach", "teach", "teach@test.cd", identity.RoleTeacher, true),
		zara:    testutil.CreatePerson(t, svcs.PersonRepo, "Zara", "zara", "zara@test.cd", identity.RoleStudent, true),
		abel:    testutil.CreatePerson(t, svcs.PersonRepo, "Abel", "abel", "abel@test.cd", identity.RoleStudent, true),
		period:  testutil.CreatePeriod(t, svcs.School, "2026-S1", 2026, true),
	}
	level := testutil.CreateLevel(t, svcs.School, "L1")
	f.class = testutil.CreateClass(t, svcs.School, "Go 101", level.ID, f.period.ID, f.teacher.ID, 0)
	testutil.Enroll(t, svcs.School, f.class.ID, f.zara.ID, f.abel.ID)

	f.dates = []time.Time{
		testutil.Date(2026, time.March, 2),
		testutil.Date(2026, time.March, 9),
	}
	testutil.ScheduleSessions(t, svcs.School, f.class.ID, f.dates...)

	if _, err := svcs.Grades.UpsertComponents(ctx, f.class.ID, f.zara.ID, grading.Scores{
		"n1": dec("12"), "n2": dec("12"), "n3": dec("12"), "n4": dec("12"),
	}); err != nil {
		t.Fatalf("UpsertComponents() failed: %v", err)
	}

	_, err := svcs.Attendance.SaveBatch(ctx, f.class.ID, []attendance.StudentEntries{
		{StudentID: f.zara.ID, Entries: []attendance.Entry{
			{Date: f.dates[0], Present: true},
			{Date: f.dates[1], Present: true},
		}},
		{StudentID: f.abel.ID, Entries: []attendance.Entry{
			{Date: f.dates[0], Present: true},
		}},
	})
	if err != nil {
		t.Fatalf("SaveBatch() failed: %v", err)
	}
	return f
}

func Test_Service_ClassReport(t *testing.T) {
	f := newFixture(t)

	rpt, err := f.svcs.Reports.ClassReport(ctx, f.class.ID)
	if err != nil {
		t.Fatalf("ClassReport() failed: %v", err)
	}

	if rpt.ClassName != "Go 101" || rpt.LevelName != "L1" || rpt.PeriodName != "2026-S1" {
		t.Errorf("header = %s / %s / %s", rpt.ClassName, rpt.LevelName, rpt.PeriodName)
	}
	if len(rpt.Students) != 2 {
		t.Fatalf("len(Students) = %d; want 2", len(rpt.Students))
	}

	// sorted by name: Abel first
	abel, zara := rpt.Students[0], rpt.Students[1]
	if abel.Name != "Abel" || zara.Name != "Zara" {
		t.Fatalf("student order = [%s %s]; want [Abel Zara]", abel.Name, zara.Name)
	}
	if !zara.Average.Equal(dec("12")) || zara.Status != grading.StatusApproved {
		t.Errorf("Zara = avg %s, %s; want 12, %s", zara.Average, zara.Status, grading.StatusApproved)
	}
	if !zara.AttendancePct.Equal(dec("100")) {
		t.Errorf("Zara.AttendancePct = %s; want 100", zara.AttendancePct)
	}
	if !abel.Average.IsZero() || abel.Status != grading.StatusDisapproved {
		t.Errorf("Abel = avg %s, %s; want 0, %s", abel.Average, abel.Status, grading.StatusDisapproved)
	}
	if !abel.AttendancePct.Equal(dec("50")) {
		t.Errorf("Abel.AttendancePct = %s; want 50", abel.AttendancePct)
	}

	if rpt.Totals.Enrolled != 2 || rpt.Totals.Graded != 2 || rpt.Totals.Approved != 1 {
		t.Errorf("Totals = %+v", rpt.Totals)
	}
	if !rpt.Totals.ApprovalRate.Equal(dec("50")) {
		t.Errorf("ApprovalRate = %s; want 50", rpt.Totals.ApprovalRate)
	}
	if !rpt.Totals.MeanAttendance.Equal(dec("75")) {
		t.Errorf("MeanAttendance = %s; want 75", rpt.Totals.MeanAttendance)
	}
}

func Test_Service_ClassReport_unknownClass(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svcs.Reports.ClassReport(ctx, "nope"); err != school.ErrClassNotFound {
		t.Errorf("ClassReport() error = %v; want %v", err, school.ErrClassNotFound)
	}
}

func Test_Service_AttendanceReport(t *testing.T) {
	f := newFixture(t)

	rpt, err := f.svcs.Reports.AttendanceReport(ctx, f.class.ID)
	if err != nil {
		t.Fatalf("AttendanceReport() failed: %v", err)
	}

	if len(rpt.Dates) != 2 || len(rpt.Students) != 2 {
		t.Fatalf("grid = %d dates x %d students; want 2x2", len(rpt.Dates), len(rpt.Students))
	}
	if rpt.TotalPresent != 3 || rpt.TotalAbsent != 1 {
		t.Errorf("TotalPresent/TotalAbsent = %d/%d; want 3/1", rpt.TotalPresent, rpt.TotalAbsent)
	}
	if len(rpt.SessionTotals) != 2 {
		t.Fatalf("len(SessionTotals) = %d; want 2", len(rpt.SessionTotals))
	}
	first, second := rpt.SessionTotals[0], rpt.SessionTotals[1]
	if first.Present != 2 || first.Absent != 0 {
		t.Errorf("session 1 totals = %d/%d; want 2/0", first.Present, first.Absent)
	}
	if second.Present != 1 || second.Absent != 1 {
		t.Errorf("session 2 totals = %d/%d; want 1/1", second.Present, second.Absent)
	}

	for _, row := range rpt.Students {
		if len(row.Present) != 2 {
			t.Errorf("row %s not aligned to session dates", row.Name)
		}
		if row.Attended+row.Missed != 2 {
			t.Errorf("row %s: attended %d + missed %d != 2", row.Name, row.Attended, row.Missed)
		}
	}
}

func Test_Service_PeriodDashboard(t *testing.T) {
	f := newFixture(t)

	// a class in an inactive period must not leak into the default scope
	oldPeriod := testutil.CreatePeriod(t, f.svcs.School, "2020-S1", 2020, false)
	level := testutil.CreateLevel(t, f.svcs.School, "L9")
	testutil.CreateClass(t, f.svcs.School, "Archive", level.ID, oldPeriod.ID, f.teacher.ID, 0)

	t.Run("explicit period", func(t *testing.T) {
		dash, err := f.svcs.Reports.PeriodDashboard(ctx, f.period.ID)
		if err != nil {
			t.Fatalf("PeriodDashboard() failed: %v", err)
		}
		if dash.PeriodName != "2026-S1" {
			t.Errorf("PeriodName = %s; want 2026-S1", dash.PeriodName)
		}
		if len(dash.Rows) != 1 {
			t.Fatalf("len(Rows) = %d; want 1", len(dash.Rows))
		}
		row := dash.Rows[0]
		if row.ClassName != "Go 101" || row.Enrolled != 2 || row.Approved != 1 {
			t.Errorf("Row = %+v", row)
		}
	})

	t.Run("default scope is active periods", func(t *testing.T) {
		dash, err := f.svcs.Reports.PeriodDashboard(ctx, "")
		if err != nil {
			t.Fatalf("PeriodDashboard() failed: %v", err)
		}
		if len(dash.Rows) != 1 || dash.Rows[0].ClassName != "Go 101" {
			t.Errorf("Rows = %+v; want only Go 101", dash.Rows)
		}
	})

	t.Run("unknown period", func(t *testing.T) {
		if _, err := f.svcs.Reports.PeriodDashboard(ctx, "nope"); err != school.ErrPeriodNotFound {
			t.Errorf("PeriodDashboard() error = %v; want %v", err, school.ErrPeriodNotFound)
		}
	})
}

func Test_Service_ReportCard(t *testing.T) {
	f := newFixture(t)

	card, err := f.svcs.Reports.ReportCard(ctx, f.zara.ID)
	if err != nil {
		t.Fatalf("ReportCard() failed: %v", err)
	}
	if card.Name != "Zara" {
		t.Errorf("Name = %s; want Zara", card.Name)
	}
	if len(card.Rows) != 1 {
		t.Fatalf("len(Rows) = %d; want 1", len(card.Rows))
	}
	row := card.Rows[0]
	if row.ClassName != "Go 101" || row.LevelName != "L1" {
		t.Errorf("Row header = %s / %s", row.ClassName, row.LevelName)
	}
	if !row.Average.Equal(dec("12")) || row.Status != grading.StatusApproved {
		t.Errorf("Row = avg %s, %s; want 12, %s", row.Average, row.Status, grading.StatusApproved)
	}
	if len(row.Scores) != 4 {
		t.Errorf("len(Scores) = %d; want one per component", len(row.Scores))
	}
	if len(row.TimeSlots) != 1 || row.TimeSlots[0] != "Monday 18:00-20:00" {
		t.Errorf("TimeSlots = %v", row.TimeSlots)
	}

	t.Run("unknown student", func(t *testing.T) {
		if _, err := f.svcs.Reports.ReportCard(ctx, "nope"); err != identity.ErrNotFound {
			t.Errorf("ReportCard() error = %v; want %v", err, identity.ErrNotFound)
		}
	})
}

func Test_Service_TeacherRoster(t *testing.T) {
	f := newFixture(t)

	// a class assisted, not run, by the teacher
	other := testutil.CreatePerson(t, f.svcs.PersonRepo, "Other", "other", "other@test.cd", identity.RoleTeacher, true)
	level := testutil.CreateLevel(t, f.svcs.School, "L2")
	assisted, err := f.svcs.School.CreateClass(ctx, school.NewClass{
		Name:        "Go 201",
		LevelID:     level.ID,
		PeriodID:    f.period.ID,
		TeacherID:   other.ID,
		AssistantID: f.teacher.ID,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}

	roster, err := f.svcs.Reports.TeacherRoster(ctx, f.teacher.ID)
	if err != nil {
		t.Fatalf("TeacherRoster() failed: %v", err)
	}
	if len(roster.Classes) != 2 {
		t.Fatalf("len(Classes) = %d; want 2", len(roster.Classes))
	}
	roles := make(map[string]string, 2)
	enrolled := make(map[string]int, 2)
	for _, c := range roster.Classes {
		roles[c.ClassID] = c.Role
		enrolled[c.ClassID] = c.Enrolled
	}
	if roles[f.class.ID] != "titular" {
		t.Errorf("role for own class = %s; want titular", roles[f.class.ID])
	}
	if roles[assisted.ID] != "assistant" {
		t.Errorf("role for assisted class = %s; want assistant", roles[assisted.ID])
	}
	if enrolled[f.class.ID] != 2 || enrolled[assisted.ID] != 0 {
		t.Errorf("enrolled counts = %v", enrolled)
	}
}
