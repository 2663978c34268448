package report

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// StudentSummary is one student's line of a class report: scores in
	// component order, the derived average, attendance percentage and
	// approval status.
	StudentSummary struct {
		StudentID     string            `json:"student_id"`
		Name          string            `json:"name"`
		Scores        []decimal.Decimal `json:"scores"`
		Average       decimal.Decimal   `json:"average"`
		AttendancePct decimal.Decimal   `json:"attendance_pct"`
		Status        string            `json:"status"`
	}

	ClassTotals struct {
		Enrolled       int             `json:"enrolled"`
		Graded         int             `json:"graded"`
		Approved       int             `json:"approved"`
		ApprovalRate   decimal.Decimal `json:"approval_rate"`   // % of enrolled
		MeanAttendance decimal.Decimal `json:"mean_attendance"` // % across students
	}

	ClassReport struct {
		ClassID    string           `json:"class_id"`
		ClassName  string           `json:"class_name"`
		LevelName  string           `json:"level_name,omitempty"`
		PeriodName string           `json:"period_name,omitempty"`
		Components []string         `json:"components"`
		Students   []StudentSummary `json:"students"`
		Totals     ClassTotals      `json:"totals"`
	}
)

type (
	AttendanceRow struct {
		StudentID string `json:"student_id"`
		Name      string `json:"name"`
		Present   []bool `json:"present"` // aligned to Dates
		Attended  int    `json:"attended"`
		Missed    int    `json:"missed"`
	}

	SessionTotal struct {
		Date    time.Time `json:"date"`
		Present int       `json:"present"`
		Absent  int       `json:"absent"`
	}

	AttendanceReport struct {
		ClassID       string          `json:"class_id"`
		ClassName     string          `json:"class_name"`
		Dates         []time.Time     `json:"dates"`
		Students      []AttendanceRow `json:"students"`
		SessionTotals []SessionTotal  `json:"session_totals"`
		TotalPresent  int             `json:"total_present"`
		TotalAbsent   int             `json:"total_absent"`
	}
)

type (
	DashboardRow struct {
		ClassID   string `json:"class_id"`
		ClassName string `json:"class_name"`
		LevelName string `json:"level_name,omitempty"`
		ClassTotals
	}

	PeriodDashboard struct {
		PeriodID   string         `json:"period_id,omitempty"`
		PeriodName string         `json:"period_name,omitempty"`
		Rows       []DashboardRow `json:"rows"`
	}
)

type (
	ReportCardRow struct {
		ClassID       string            `json:"class_id"`
		ClassName     string            `json:"class_name"`
		LevelName     string            `json:"level_name,omitempty"`
		TimeSlots     []string          `json:"time_slots"`
		Scores        []decimal.Decimal `json:"scores"`
		Average       decimal.Decimal   `json:"average"`
		AttendancePct decimal.Decimal   `json:"attendance_pct"`
		Status        string            `json:"status"`
	}

	ReportCard struct {
		StudentID string          `json:"student_id"`
		Name      string          `json:"name"`
		Rows      []ReportCardRow `json:"rows"`
	}
)

type (
	TeacherClass struct {
		ClassID   string `json:"class_id"`
		ClassName string `json:"class_name"`
		LevelName string `json:"level_name,omitempty"`
		Role      string `json:"role"` // "titular" | "assistant"
		Enrolled  int    `json:"enrolled"`
	}

	TeacherRoster struct {
		TeacherID string         `json:"teacher_id"`
		Name      string         `json:"name"`
		Classes   []TeacherClass `json:"classes"`
	}
)
