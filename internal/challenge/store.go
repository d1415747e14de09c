package challenge

import (
	"context"

	"github.com/google/uuid"
)

// EnrollmentUpdate carries the fields a check-in may change.
type EnrollmentUpdate struct {
	CurrentDay    int
	CompletedDays []int
	Status        Status
}

// Store is the persistence contract for the progress engine. It is injected at
// construction time so the check-in atomicity rules can be exercised against an
// in-memory implementation as well as Postgres.
//
// ConditionalUpdateEnrollment must apply the update only while the stored
// current_day still equals expectedCurrentDay and the enrollment is still
// active, and return ErrConflict otherwise. That compare-and-swap is what
// serializes concurrent check-ins on the same enrollment, and the status guard
// keeps a check-in from resurrecting an attempt abandoned under it.
type Store interface {
	ListDefinitions(ctx context.Context) ([]*Definition, error)
	GetDefinition(ctx context.Context, challengeID uuid.UUID) (*Definition, error)
	GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*Enrollment, error)
	// FindActiveEnrollment returns (nil, nil) when the user has no active
	// attempt at the challenge.
	FindActiveEnrollment(ctx context.Context, userID, challengeID uuid.UUID) (*Enrollment, error)
	// CreateEnrollment returns ErrConflict when the user already holds an
	// active enrollment for the same challenge.
	CreateEnrollment(ctx context.Context, e *Enrollment) error
	ConditionalUpdateEnrollment(ctx context.Context, enrollmentID uuid.UUID, expectedCurrentDay int, update EnrollmentUpdate) error
	// AbandonEnrollment transitions an active enrollment to abandoned. It is an
	// administrative action; completed and abandoned rows stay untouched and
	// the call returns ErrNotActive, while an unknown id returns
	// ErrEnrollmentNotFound.
	AbandonEnrollment(ctx context.Context, enrollmentID uuid.UUID) error
}
