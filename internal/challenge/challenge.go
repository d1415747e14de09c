package challenge

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is a closed set. Anything else coming out of the database is a data bug
// and is rejected by ParseStatus.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown enrollment status %q", s)
}

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrNotActive          = errors.New("enrollment is not active")
	ErrAlreadyCheckedIn   = errors.New("already checked in for this day")
	// ErrConflict is returned by Store.ConditionalUpdateEnrollment when the
	// expected current_day no longer matches; the caller re-reads and retries.
	ErrConflict = errors.New("concurrent update conflict")
)

type Milestone struct {
	Day         int    `json:"day" db:"day"`
	Description string `json:"description" db:"description"`
}

// Definition is immutable reference data for a program such as the
// 21-Day Transformation. DailyTips may be sparse.
type Definition struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description" db:"description"`
	DurationDays int            `json:"duration_days" db:"duration_days"`
	DailyTips    map[int]string `json:"daily_tips" db:"daily_tips"`
	Milestones   []Milestone    `json:"milestones" db:"milestones"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// Enrollment is one user's attempt at a challenge. CurrentDay is the next day
// slot eligible for check-in and stays one past the last completed day.
type Enrollment struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	ChallengeID   uuid.UUID `json:"challenge_id" db:"challenge_id"`
	StartDate     time.Time `json:"start_date" db:"start_date"`
	CurrentDay    int       `json:"current_day" db:"current_day"`
	CompletedDays []int     `json:"completed_days" db:"completed_days"`
	Status        Status    `json:"status" db:"status"`
}

type CheckInResult struct {
	CompletedCount int    `json:"completed_count"`
	Status         Status `json:"status"`
	JustCompleted  bool   `json:"just_completed"`
}

type ProgressView struct {
	EnrollmentID      uuid.UUID   `json:"enrollment_id"`
	ChallengeID       uuid.UUID   `json:"challenge_id"`
	Title             string      `json:"title"`
	Status            Status      `json:"status"`
	CurrentDay        int         `json:"current_day"`
	CompletedCount    int         `json:"completed_count"`
	DurationDays      int         `json:"duration_days"`
	ProgressPercent   int         `json:"progress_percent"`
	DaysRemaining     int         `json:"days_remaining"`
	CheckedInToday    bool        `json:"checked_in_today"`
	TodaysTip         string      `json:"todays_tip"`
	MilestonesReached []Milestone `json:"milestones_reached"`
}

// DefaultTip is served for days without a registered tip.
const DefaultTip = "Stay consistent today: hydrate, move, and stick to your plan."

func HasCompletedDay(e *Enrollment, day int) bool {
	for _, d := range e.CompletedDays {
		if d == day {
			return true
		}
	}
	return false
}

// ProgressPercent rounds to the nearest whole percent. DurationDays >= 1 is an
// invariant of Definition, so the division is always defined.
func ProgressPercent(e *Enrollment, def *Definition) int {
	return int((float64(len(e.CompletedDays))/float64(def.DurationDays))*100 + 0.5)
}

func DaysRemaining(e *Enrollment, def *Definition) int {
	remaining := def.DurationDays - len(e.CompletedDays)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsCheckedInToday reports whether the current day slot is already completed.
// In normally maintained records CurrentDay is one past the last completed day,
// so this is false; seeded or hand-built rows can make it true, and the
// presentation layer uses it to disable the check-in button.
func IsCheckedInToday(e *Enrollment) bool {
	return HasCompletedDay(e, e.CurrentDay)
}

func TipForDay(def *Definition, day int) string {
	if tip, ok := def.DailyTips[day]; ok && tip != "" {
		return tip
	}
	return DefaultTip
}

// MilestonesReached returns every milestone whose day is at or before the
// number of completed days, preserving definition order.
func MilestonesReached(e *Enrollment, def *Definition) []Milestone {
	reached := make([]Milestone, 0, len(def.Milestones))
	for _, m := range def.Milestones {
		if m.Day <= len(e.CompletedDays) {
			reached = append(reached, m)
		}
	}
	return reached
}
