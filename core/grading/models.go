package grading

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/darasa/core"
)

// Score bounds; the historical business rule across every revision of the
// grading scheme.
var (
	ScoreMin = decimal.Zero
	ScoreMax = decimal.NewFromInt(20)
)

// Approval statuses. "Disapproved" is a normal computed value, never an error.
const (
	StatusApproved    = "Approved"
	StatusDisapproved = "Disapproved"
)

// Scores maps component name to score. Scores are monetary-precision-grade
// decimals with 2 implied decimal places; binary floats would drift under
// repeated recomputation.
type Scores map[string]decimal.Decimal

type Record struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	StudentID string    `json:"student_id"`
	Scores    Scores    `json:"scores"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Config is the versioned grading configuration: the ordered component names
// and the approval thresholds. The business has changed all three before
// (two-, three- and four-component schemes; grade threshold between 10.5 and
// 14) and will again, so they are injected here rather than baked into the
// computation methods.
type Config struct {
	Components          []string
	GradeThreshold      decimal.Decimal
	AttendanceThreshold decimal.Decimal
}

func NewConfig(conf core.GradingConfig) (Config, error) {
	if len(conf.Components) == 0 {
		return Config{}, fmt.Errorf("grading: at least one component is required")
	}
	gradeThr, err := decimal.NewFromString(conf.GradeThreshold)
	if err != nil {
		return Config{}, fmt.Errorf("grading: invalid grade threshold %q", conf.GradeThreshold)
	}
	attThr, err := decimal.NewFromString(conf.AttendanceThreshold)
	if err != nil {
		return Config{}, fmt.Errorf("grading: invalid attendance threshold %q", conf.AttendanceThreshold)
	}
	return Config{
		Components:          conf.Components,
		GradeThreshold:      gradeThr,
		AttendanceThreshold: attThr,
	}, nil
}

// ZeroScores returns a fresh all-zero score set for the configured components.
func (cfg Config) ZeroScores() Scores {
	scores := make(Scores, len(cfg.Components))
	for _, name := range cfg.Components {
		scores[name] = decimal.Zero
	}
	return scores
}

func (cfg Config) hasComponent(name string) bool {
	for _, c := range cfg.Components {
		if c == name {
			return true
		}
	}
	return false
}

// OutOfRangeError reports a component score outside [ScoreMin, ScoreMax].
type OutOfRangeError struct {
	Component string
	Value     decimal.Decimal
}

func (err *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: score %s must be between %s and %s",
		err.Component, err.Value, ScoreMin, ScoreMax)
}
