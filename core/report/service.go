// Package report composes the roster, session catalog, attendance ledger and
// grade ledger into read-only rollups. Nothing here mutates state; reads
// tolerate in-flight writes.
package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/identity"
	"github.com/trezcool/darasa/core/school"
)

var hundred = decimal.NewFromInt(100)

type (
	// SchoolSource is the slice of school.Service the aggregator reads from.
	SchoolSource interface {
		GetClass(ctx context.Context, id string) (school.ClassSection, error)
		QueryClasses(ctx context.Context, filter *school.ClassFilter) ([]school.ClassSection, error)
		GetLevel(ctx context.Context, id string) (school.Level, error)
		GetPeriod(ctx context.Context, id string) (school.AcademicPeriod, error)
		Members(ctx context.Context, classID string) ([]identity.Person, error)
	}

	// AttendanceSource is implemented by attendance.Service.
	AttendanceSource interface {
		Matrix(ctx context.Context, classID string) (attendance.Matrix, error)
	}

	// GradingSource is implemented by grading.Service.
	GradingSource interface {
		Config() grading.Config
		ClassRecords(ctx context.Context, classID string) ([]grading.Record, error)
		StudentRecords(ctx context.Context, studentID string) ([]grading.Record, error)
		Average(rec grading.Record) decimal.Decimal
		AttendancePct(ctx context.Context, classID, studentID string) (decimal.Decimal, error)
		StatusOf(avg, attendancePct decimal.Decimal) string
	}

	// Directory resolves persons for report headers.
	Directory interface {
		GetByID(ctx context.Context, id string) (identity.Person, error)
	}

	Service struct {
		school     SchoolSource
		attendance AttendanceSource
		grades     GradingSource
		dir        Directory
	}
)

func NewService(schoolSvc SchoolSource, attendanceSvc AttendanceSource, gradeSvc GradingSource, dir Directory) *Service {
	return &Service{school: schoolSvc, attendance: attendanceSvc, grades: gradeSvc, dir: dir}
}

// ClassReport is the per-student grade/attendance/approval rollup of a class,
// with class-level totals.
func (svc *Service) ClassReport(ctx context.Context, classID string) (ClassReport, error) {
	c, err := svc.school.GetClass(ctx, classID)
	if err != nil {
		return ClassReport{}, err
	}

	rpt := ClassReport{
		ClassID:    c.ID,
		ClassName:  c.Name,
		Components: svc.grades.Config().Components,
	}
	if rpt.LevelName, rpt.PeriodName, err = svc.classRefNames(ctx, c); err != nil {
		return ClassReport{}, err
	}

	members, err := svc.school.Members(ctx, classID)
	if err != nil {
		return ClassReport{}, err
	}
	recs, err := svc.grades.ClassRecords(ctx, classID)
	if err != nil {
		return ClassReport{}, err
	}
	recByStudent := make(map[string]grading.Record, len(recs))
	for _, rec := range recs {
		recByStudent[rec.StudentID] = rec
	}

	attendanceSum := decimal.Zero
	rpt.Students = make([]StudentSummary, 0, len(members))
	for _, m := range members {
		rec, graded := recByStudent[m.ID]
		pct, err := svc.grades.AttendancePct(ctx, classID, m.ID)
		if err != nil {
			return ClassReport{}, err
		}
		avg := svc.grades.Average(rec)
		status := svc.grades.StatusOf(avg, pct)

		rpt.Students = append(rpt.Students, StudentSummary{
			StudentID:     m.ID,
			Name:          m.Name,
			Scores:        svc.orderedScores(rec),
			Average:       avg,
			AttendancePct: pct,
			Status:        status,
		})

		attendanceSum = attendanceSum.Add(pct)
		rpt.Totals.Enrolled++
		if graded {
			rpt.Totals.Graded++
		}
		if status == grading.StatusApproved {
			rpt.Totals.Approved++
		}
	}

	if rpt.Totals.Enrolled > 0 {
		n := decimal.NewFromInt(int64(rpt.Totals.Enrolled))
		rpt.Totals.ApprovalRate = decimal.NewFromInt(int64(rpt.Totals.Approved)).Mul(hundred).Div(n).Round(2)
		rpt.Totals.MeanAttendance = attendanceSum.Div(n).Round(2)
	}
	return rpt, nil
}

// AttendanceReport is the per-student per-session presence grid of a class.
// It is built from the session catalog's authoritative date list, so sessions
// with no recorded attendance still appear as absent instead of being
// silently omitted.
func (svc *Service) AttendanceReport(ctx context.Context, classID string) (AttendanceReport, error) {
	c, err := svc.school.GetClass(ctx, classID)
	if err != nil {
		return AttendanceReport{}, err
	}
	m, err := svc.attendance.Matrix(ctx, classID)
	if err != nil {
		return AttendanceReport{}, err
	}

	rpt := AttendanceReport{
		ClassID:   c.ID,
		ClassName: c.Name,
		Dates:     m.Dates,
		Students:  make([]AttendanceRow, 0, len(m.Students)),
	}
	perSession := make([]SessionTotal, len(m.Dates))
	for i, d := range m.Dates {
		perSession[i].Date = d
	}

	for _, row := range m.Students {
		ar := AttendanceRow{
			StudentID: row.StudentID,
			Name:      row.StudentName,
			Present:   make([]bool, 0, len(row.Entries)),
		}
		for i, e := range row.Entries {
			ar.Present = append(ar.Present, e.Present)
			if e.Present {
				ar.Attended++
				perSession[i].Present++
				rpt.TotalPresent++
			} else {
				ar.Missed++
				perSession[i].Absent++
				rpt.TotalAbsent++
			}
		}
		rpt.Students = append(rpt.Students, ar)
	}
	rpt.SessionTotals = perSession
	return rpt, nil
}

// PeriodDashboard is one summary row per class in scope: the classes of the
// given period, or of every active period when periodID is empty.
func (svc *Service) PeriodDashboard(ctx context.Context, periodID string) (PeriodDashboard, error) {
	var dash PeriodDashboard
	filter := &school.ClassFilter{}
	if periodID != "" {
		p, err := svc.school.GetPeriod(ctx, periodID)
		if err != nil {
			return PeriodDashboard{}, err
		}
		dash.PeriodID = p.ID
		dash.PeriodName = p.Name
		filter.PeriodID = p.ID
	} else {
		filter.ActivePeriodsOnly = true
	}

	classes, err := svc.school.QueryClasses(ctx, filter)
	if err != nil {
		return PeriodDashboard{}, err
	}
	dash.Rows = make([]DashboardRow, 0, len(classes))
	for _, c := range classes {
		rpt, err := svc.ClassReport(ctx, c.ID)
		if err != nil {
			return PeriodDashboard{}, err
		}
		dash.Rows = append(dash.Rows, DashboardRow{
			ClassID:     c.ID,
			ClassName:   c.Name,
			LevelName:   rpt.LevelName,
			ClassTotals: rpt.Totals,
		})
	}
	return dash, nil
}

// ReportCard is a student's standing across all their graded classes.
func (svc *Service) ReportCard(ctx context.Context, studentID string) (ReportCard, error) {
	p, err := svc.dir.GetByID(ctx, studentID)
	if err != nil {
		return ReportCard{}, err
	}

	recs, err := svc.grades.StudentRecords(ctx, studentID)
	if err != nil {
		return ReportCard{}, err
	}
	card := ReportCard{StudentID: p.ID, Name: p.Name, Rows: make([]ReportCardRow, 0, len(recs))}
	for _, rec := range recs {
		c, err := svc.school.GetClass(ctx, rec.ClassID)
		if err != nil {
			return ReportCard{}, err
		}
		levelName, _, err := svc.classRefNames(ctx, c)
		if err != nil {
			return ReportCard{}, err
		}
		pct, err := svc.grades.AttendancePct(ctx, rec.ClassID, studentID)
		if err != nil {
			return ReportCard{}, err
		}
		avg := svc.grades.Average(rec)

		card.Rows = append(card.Rows, ReportCardRow{
			ClassID:       c.ID,
			ClassName:     c.Name,
			LevelName:     levelName,
			TimeSlots:     school.TimeSlotStrings(c.TimeSlots),
			Scores:        svc.orderedScores(rec),
			Average:       avg,
			AttendancePct: pct,
			Status:        svc.grades.StatusOf(avg, pct),
		})
	}
	return card, nil
}

// TeacherRoster lists the classes a teacher runs as titular or assistant.
func (svc *Service) TeacherRoster(ctx context.Context, teacherID string) (TeacherRoster, error) {
	p, err := svc.dir.GetByID(ctx, teacherID)
	if err != nil {
		return TeacherRoster{}, err
	}

	classes, err := svc.school.QueryClasses(ctx, &school.ClassFilter{TeacherID: teacherID})
	if err != nil {
		return TeacherRoster{}, err
	}
	roster := TeacherRoster{TeacherID: p.ID, Name: p.Name, Classes: make([]TeacherClass, 0, len(classes))}
	for _, c := range classes {
		role := "assistant"
		if c.TeacherID == teacherID {
			role = "titular"
		}
		levelName, _, err := svc.classRefNames(ctx, c)
		if err != nil {
			return TeacherRoster{}, err
		}
		members, err := svc.school.Members(ctx, c.ID)
		if err != nil {
			return TeacherRoster{}, err
		}
		roster.Classes = append(roster.Classes, TeacherClass{
			ClassID:   c.ID,
			ClassName: c.Name,
			LevelName: levelName,
			Role:      role,
			Enrolled:  len(members),
		})
	}
	return roster, nil
}

func (svc *Service) orderedScores(rec grading.Record) []decimal.Decimal {
	components := svc.grades.Config().Components
	scores := make([]decimal.Decimal, 0, len(components))
	for _, name := range components {
		val, ok := rec.Scores[name]
		if !ok {
			val = decimal.Zero
		}
		scores = append(scores, val)
	}
	return scores
}

func (svc *Service) classRefNames(ctx context.Context, c school.ClassSection) (levelName, periodName string, err error) {
	if c.LevelID != "" {
		l, err := svc.school.GetLevel(ctx, c.LevelID)
		if err != nil {
			return "", "", err
		}
		levelName = l.Name
	}
	if c.PeriodID != "" {
		p, err := svc.school.GetPeriod(ctx, c.PeriodID)
		if err != nil {
			return "", "", err
		}
		periodName = p.Name
	}
	return levelName, periodName, nil
}
