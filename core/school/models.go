package school

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
)

type AcademicPeriod struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Level struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimeSlot is a weekly recurring slot a class meets on.
type TimeSlot struct {
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"` // "HH:MM", 24h
	End     string       `json:"end"`
}

func (ts TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", ts.Weekday, ts.Start, ts.End)
}

func TimeSlotStrings(slots []TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, ts := range slots {
		out = append(out, ts.String())
	}
	return out
}

type ClassSection struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	LevelID     string     `json:"level_id,omitempty"`
	PeriodID    string     `json:"period_id,omitempty"`
	TeacherID   string     `json:"teacher_id,omitempty"`
	AssistantID string     `json:"assistant_id,omitempty"`
	TimeSlots   []TimeSlot `json:"time_slots"`
	// TotalSessions is the declared session count; it is only the attendance
	// denominator while no ScheduledSession rows exist for the class.
	TotalSessions int       `json:"total_sessions"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// FullName renders the display name used on rosters and report cards,
// e.g. "Beginners A — 2024-I (Monday 18:00-20:00)".
func (c ClassSection) FullName(periodName string) string {
	if periodName == "" {
		periodName = "no period"
	}
	return fmt.Sprintf("%s — %s (%s)", c.Name, periodName, strings.Join(TimeSlotStrings(c.TimeSlots), ", "))
}

type ScheduledSession struct {
	ID      string    `json:"id"`
	ClassID string    `json:"class_id"`
	Date    time.Time `json:"date"` // calendar date, UTC midnight
}

// NewPeriod contains information needed to create a new AcademicPeriod.
type NewPeriod struct {
	Name      string    `json:"name" validate:"required"`
	Year      int       `json:"year" validate:"required,min=2000,max=2200"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsActive  bool      `json:"is_active"`
}

func (np *NewPeriod) Validate() error {
	np.Name = core.CleanString(np.Name)
	return core.Validate.Struct(np)
}

type NewLevel struct {
	Name string `json:"name" validate:"required"`
}

func (nl *NewLevel) Validate() error {
	nl.Name = core.CleanString(nl.Name)
	return core.Validate.Struct(nl)
}

// NewClass contains information needed to create a new ClassSection.
type NewClass struct {
	Name          string     `json:"name" validate:"required"`
	LevelID       string     `json:"level_id"`
	PeriodID      string     `json:"period_id"`
	TeacherID     string     `json:"teacher_id"`
	AssistantID   string     `json:"assistant_id"`
	TimeSlots     []TimeSlot `json:"time_slots" validate:"omitempty,dive"`
	TotalSessions int        `json:"total_sessions" validate:"min=0"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return validateTimeSlots(nc.TimeSlots)
}

// UpdateClass defines what information may be provided to modify an existing ClassSection.
type UpdateClass struct {
	Name          string     `json:"name"`
	LevelID       *string    `json:"level_id"`
	PeriodID      *string    `json:"period_id"`
	TeacherID     *string    `json:"teacher_id"`
	AssistantID   *string    `json:"assistant_id"`
	TimeSlots     []TimeSlot `json:"time_slots" validate:"omitempty,dive"`
	TotalSessions *int       `json:"total_sessions"`
}

func (uc *UpdateClass) Validate(orig ClassSection) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	return validateTimeSlots(uc.TimeSlots)
}

func validateTimeSlots(slots []TimeSlot) error {
	for i, ts := range slots {
		if ts.Weekday < time.Sunday || ts.Weekday > time.Saturday {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("time_slots[%d].weekday", i), Error: "invalid weekday",
			})
		}
		if err := core.Validate.Var(ts.Start, "required,timeofday"); err != nil {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("time_slots[%d].start", i), Error: "must be a valid HH:MM time",
			})
		}
		if err := core.Validate.Var(ts.End, "required,timeofday"); err != nil {
			return core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("time_slots[%d].end", i), Error: "must be a valid HH:MM time",
			})
		}
	}
	return nil
}

// NewSession contains information needed to schedule a session.
type NewSession struct {
	ClassID string    `json:"class_id" validate:"required"`
	Date    time.Time `json:"date" validate:"required"`
}

func (ns *NewSession) Validate() error {
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	ns.Date = core.NormalizeDate(ns.Date)
	return nil
}

// ClassFilter narrows QueryClasses; zero-valued fields are ignored.
type ClassFilter struct {
	PeriodID          string `query:"period"`
	LevelID           string `query:"level"`
	TeacherID         string `query:"teacher"`
	ActivePeriodsOnly bool   `query:"active"`
}
