package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"navyaJuicesAPI/internal/challenge"
	"navyaJuicesAPI/internal/notification"
)

// checkInMaxAttempts bounds the re-read/retry loop when the conditional update
// loses a race against another check-in on the same enrollment.
const checkInMaxAttempts = 3

type ChallengeService struct {
	store         challenge.Store
	notifications *NotificationService
}

// NewChallengeService wires the engine to its persistence contract. The store
// is injected rather than reached through a package-level pool so the check-in
// atomicity rules are testable against an in-memory implementation.
func NewChallengeService(store challenge.Store, notifications *NotificationService) *ChallengeService {
	return &ChallengeService{store: store, notifications: notifications}
}

// Enroll starts a user's attempt at a challenge. Re-enrolling while an attempt
// is still active returns the existing enrollment untouched.
func (s *ChallengeService) Enroll(ctx context.Context, userID, challengeID uuid.UUID) (uuid.UUID, error) {
	if _, err := s.store.GetDefinition(ctx, challengeID); err != nil {
		return uuid.Nil, err
	}

	existing, err := s.store.FindActiveEnrollment(ctx, userID, challengeID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up active enrollment: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	enrollment := &challenge.Enrollment{
		ID:            uuid.New(),
		UserID:        userID,
		ChallengeID:   challengeID,
		StartDate:     time.Now(),
		CurrentDay:    1,
		CompletedDays: []int{},
		Status:        challenge.StatusActive,
	}
	if err := s.store.CreateEnrollment(ctx, enrollment); err != nil {
		if err == challenge.ErrConflict {
			// A concurrent enroll created the row between the lookup and the
			// insert. Return the winner so the call stays idempotent.
			winner, ferr := s.store.FindActiveEnrollment(ctx, userID, challengeID)
			if ferr == nil && winner != nil {
				return winner.ID, nil
			}
		}
		return uuid.Nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	return enrollment.ID, nil
}

// CheckIn marks the current day slot of an enrollment as completed. The
// read-modify-write is guarded by the store's conditional update on
// current_day; a lost race is re-read and retried a bounded number of times.
func (s *ChallengeService) CheckIn(ctx context.Context, enrollmentID uuid.UUID) (*challenge.CheckInResult, error) {
	var lastErr error
	attemptedDay := 0

	for attempt := 0; attempt < checkInMaxAttempts; attempt++ {
		enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
		if err != nil {
			return nil, err
		}
		if enrollment.Status != challenge.StatusActive {
			return nil, challenge.ErrNotActive
		}

		// The day slot this call is completing is pinned on the first read. If
		// a concurrent call fills it while we retry a lost conditional update,
		// this call reports a duplicate instead of silently taking the next
		// slot, so two simultaneous check-ins never both count.
		if attemptedDay == 0 {
			attemptedDay = enrollment.CurrentDay
		}
		if challenge.HasCompletedDay(enrollment, attemptedDay) {
			return nil, challenge.ErrAlreadyCheckedIn
		}

		def, err := s.store.GetDefinition(ctx, enrollment.ChallengeID)
		if err != nil {
			return nil, err
		}

		completed := append(append([]int{}, enrollment.CompletedDays...), enrollment.CurrentDay)
		update := challenge.EnrollmentUpdate{
			CurrentDay:    enrollment.CurrentDay + 1,
			CompletedDays: completed,
			Status:        challenge.StatusActive,
		}
		justCompleted := len(completed) >= def.DurationDays
		if justCompleted {
			update.Status = challenge.StatusCompleted
		}

		err = s.store.ConditionalUpdateEnrollment(ctx, enrollmentID, enrollment.CurrentDay, update)
		if err == challenge.ErrConflict {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to persist check-in: %w", err)
		}

		if justCompleted {
			s.notifyCompleted(ctx, enrollment.UserID, def)
		}

		return &challenge.CheckInResult{
			CompletedCount: len(completed),
			Status:         update.Status,
			JustCompleted:  justCompleted,
		}, nil
	}

	return nil, fmt.Errorf("check-in contention on enrollment %s: %w", enrollmentID, lastErr)
}

// GetProgressView assembles the derived state the progress screen renders.
func (s *ChallengeService) GetProgressView(ctx context.Context, enrollmentID uuid.UUID) (*challenge.ProgressView, error) {
	enrollment, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	def, err := s.store.GetDefinition(ctx, enrollment.ChallengeID)
	if err != nil {
		return nil, err
	}

	return &challenge.ProgressView{
		EnrollmentID:      enrollment.ID,
		ChallengeID:       def.ID,
		Title:             def.Title,
		Status:            enrollment.Status,
		CurrentDay:        enrollment.CurrentDay,
		CompletedCount:    len(enrollment.CompletedDays),
		DurationDays:      def.DurationDays,
		ProgressPercent:   challenge.ProgressPercent(enrollment, def),
		DaysRemaining:     challenge.DaysRemaining(enrollment, def),
		CheckedInToday:    challenge.IsCheckedInToday(enrollment),
		TodaysTip:         challenge.TipForDay(def, enrollment.CurrentDay),
		MilestonesReached: challenge.MilestonesReached(enrollment, def),
	}, nil
}

// ListChallenges returns the active challenge programs for the browse page.
func (s *ChallengeService) ListChallenges(ctx context.Context) ([]*challenge.Definition, error) {
	return s.store.ListDefinitions(ctx)
}

// GetChallenge returns one program definition.
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*challenge.Definition, error) {
	return s.store.GetDefinition(ctx, challengeID)
}

// GetEnrollment loads one enrollment record.
func (s *ChallengeService) GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*challenge.Enrollment, error) {
	return s.store.GetEnrollment(ctx, enrollmentID)
}

// FindEnrollment returns the caller's active enrollment for a challenge, or
// nil when there is none. Used by the challenge detail page to decide between
// the enroll and progress views.
func (s *ChallengeService) FindEnrollment(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.Enrollment, error) {
	return s.store.FindActiveEnrollment(ctx, userID, challengeID)
}

// AbandonEnrollment is the administrative exit from an active attempt.
func (s *ChallengeService) AbandonEnrollment(ctx context.Context, enrollmentID uuid.UUID) error {
	return s.store.AbandonEnrollment(ctx, enrollmentID)
}

func (s *ChallengeService) notifyCompleted(ctx context.Context, userID uuid.UUID, def *challenge.Definition) {
	if s.notifications == nil {
		return
	}
	// Push is best effort: a completed challenge must never be rolled back
	// because a device token went stale.
	err := s.notifications.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.TypeChallengeCompleted,
		Title:   "Challenge completed!",
		Message: fmt.Sprintf("You finished %s. Amazing work!", def.Title),
		Data:    map[string]any{"challenge_id": def.ID.String()},
	})
	if err != nil {
		log.Printf("challenge: failed to send completion notification for user %s: %v", userID, err)
	}
}
