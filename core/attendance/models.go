package attendance

import (
	"time"
)

// Record is one student's presence at one class session. At most one record
// exists per (class, student, date); absent is the default.
type Record struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"` // calendar date, UTC midnight
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type (
	// Entry is one {date, presence} cell of the attendance matrix.
	Entry struct {
		Date    time.Time `json:"date"`
		Present bool      `json:"present"`
	}

	// StudentRow is a student's entries aligned to the class's session order.
	StudentRow struct {
		StudentID   string  `json:"student_id"`
		StudentName string  `json:"student_name"`
		Entries     []Entry `json:"entries"`
	}

	// Matrix is the full roster × session grid for a class.
	Matrix struct {
		ClassID  string       `json:"class_id"`
		Dates    []time.Time  `json:"dates"`
		Students []StudentRow `json:"students"`
	}
)

type (
	// StudentEntries is the batch-save payload for one student.
	StudentEntries struct {
		StudentID string  `json:"student_id"`
		Entries   []Entry `json:"entries"`
	}

	// EntryError reports one rejected batch entry; the rest of the batch
	// still commits.
	EntryError struct {
		StudentID string `json:"student_id"`
		Date      string `json:"date,omitempty"`
		Reason    string `json:"reason"`
	}

	// BatchResult reports how many entries were applied and which were
	// rejected. Partial success is normal, not fatal.
	BatchResult struct {
		Applied int          `json:"applied"`
		Errors  []EntryError `json:"errors,omitempty"`
	}
)
