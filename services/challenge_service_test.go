package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navyaJuicesAPI/internal/challenge"
)

// memChallengeStore is an in-memory challenge.Store with the same conditional
// update semantics as the Postgres implementation. beforeUpdate and
// beforeCreate, when set, run before the store mutex is taken so tests can
// line up concurrent writers.
type memChallengeStore struct {
	mu                 sync.Mutex
	definitions        map[uuid.UUID]*challenge.Definition
	enrollments        map[uuid.UUID]*challenge.Enrollment
	beforeUpdate       func()
	beforeCreate       func()
	conflictsRemaining int
}

func newMemChallengeStore() *memChallengeStore {
	return &memChallengeStore{
		definitions: make(map[uuid.UUID]*challenge.Definition),
		enrollments: make(map[uuid.UUID]*challenge.Enrollment),
	}
}

func (m *memChallengeStore) addDefinition(def *challenge.Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions[def.ID] = def
}

func copyEnrollment(e *challenge.Enrollment) *challenge.Enrollment {
	c := *e
	c.CompletedDays = append([]int{}, e.CompletedDays...)
	return &c
}

func (m *memChallengeStore) ListDefinitions(ctx context.Context) ([]*challenge.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defs := make([]*challenge.Definition, 0, len(m.definitions))
	for _, def := range m.definitions {
		defs = append(defs, def)
	}
	return defs, nil
}

func (m *memChallengeStore) GetDefinition(ctx context.Context, challengeID uuid.UUID) (*challenge.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.definitions[challengeID]
	if !ok {
		return nil, challenge.ErrChallengeNotFound
	}
	return def, nil
}

func (m *memChallengeStore) GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*challenge.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return nil, challenge.ErrEnrollmentNotFound
	}
	return copyEnrollment(e), nil
}

func (m *memChallengeStore) FindActiveEnrollment(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.UserID == userID && e.ChallengeID == challengeID && e.Status == challenge.StatusActive {
			return copyEnrollment(e), nil
		}
	}
	return nil, nil
}

func (m *memChallengeStore) CreateEnrollment(ctx context.Context, e *challenge.Enrollment) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirrors the partial unique index on (user_id, challenge_id) for active
	// rows.
	for _, other := range m.enrollments {
		if other.UserID == e.UserID && other.ChallengeID == e.ChallengeID && other.Status == challenge.StatusActive {
			return challenge.ErrConflict
		}
	}
	m.enrollments[e.ID] = copyEnrollment(e)
	return nil
}

func (m *memChallengeStore) ConditionalUpdateEnrollment(ctx context.Context, enrollmentID uuid.UUID, expectedCurrentDay int, update challenge.EnrollmentUpdate) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conflictsRemaining > 0 {
		m.conflictsRemaining--
		return challenge.ErrConflict
	}

	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return challenge.ErrEnrollmentNotFound
	}
	if e.CurrentDay != expectedCurrentDay || e.Status != challenge.StatusActive {
		return challenge.ErrConflict
	}
	e.CurrentDay = update.CurrentDay
	e.CompletedDays = append([]int{}, update.CompletedDays...)
	e.Status = update.Status
	return nil
}

func (m *memChallengeStore) AbandonEnrollment(ctx context.Context, enrollmentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return challenge.ErrEnrollmentNotFound
	}
	if e.Status != challenge.StatusActive {
		return challenge.ErrNotActive
	}
	e.Status = challenge.StatusAbandoned
	return nil
}

func newTestChallengeService(durationDays int) (*ChallengeService, *memChallengeStore, uuid.UUID) {
	store := newMemChallengeStore()
	def := &challenge.Definition{
		ID:           uuid.New(),
		Title:        "21-Day Transformation",
		DurationDays: durationDays,
		DailyTips:    map[int]string{1: "Start with warm lemon water."},
		Milestones: []challenge.Milestone{
			{Day: 3, Description: "First 3 days done"},
			{Day: 7, Description: "One week strong"},
		},
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	store.addDefinition(def)
	return NewChallengeService(store, nil), store, def.ID
}

func TestEnrollIdempotentWhileActive(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Enroll(ctx, userID, challengeID)
	require.NoError(t, err)

	second, err := svc.Enroll(ctx, userID, challengeID)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-enrolling while active should return the same enrollment")

	// Progress survives a redundant enroll.
	_, err = svc.CheckIn(ctx, first)
	require.NoError(t, err)

	third, err := svc.Enroll(ctx, userID, challengeID)
	require.NoError(t, err)
	assert.Equal(t, first, third)

	e, err := store.GetEnrollment(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, e.CompletedDays)
}

func TestEnrollAgainAfterAbandon(t *testing.T) {
	svc, _, challengeID := newTestChallengeService(7)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Enroll(ctx, userID, challengeID)
	require.NoError(t, err)

	require.NoError(t, svc.AbandonEnrollment(ctx, first))

	second, err := svc.Enroll(ctx, userID, challengeID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "abandoning should free the slot for a fresh attempt")
}

func TestEnrollUnknownChallenge(t *testing.T) {
	svc, _, _ := newTestChallengeService(7)

	_, err := svc.Enroll(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)
}

func TestEnrollConcurrentCreateReturnsWinner(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()
	userID := uuid.New()

	// A competing enroll lands between the active-enrollment lookup and the
	// insert, so the insert trips the one-active-row constraint.
	winnerID := uuid.New()
	store.beforeCreate = func() {
		store.beforeCreate = nil
		require.NoError(t, store.CreateEnrollment(ctx, &challenge.Enrollment{
			ID:            winnerID,
			UserID:        userID,
			ChallengeID:   challengeID,
			StartDate:     time.Now(),
			CurrentDay:    1,
			CompletedDays: []int{},
			Status:        challenge.StatusActive,
		}))
	}

	got, err := svc.Enroll(ctx, userID, challengeID)
	require.NoError(t, err, "losing the creation race must not surface as an error")
	assert.Equal(t, winnerID, got, "the loser returns the winner's enrollment")
}

func TestCheckInSevenDayCompletion(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)

	for day := 1; day <= 7; day++ {
		result, err := svc.CheckIn(ctx, enrollmentID)
		require.NoError(t, err, "check-in for day %d", day)
		assert.Equal(t, day, result.CompletedCount)
		if day < 7 {
			assert.False(t, result.JustCompleted, "day %d must not complete the challenge", day)
			assert.Equal(t, challenge.StatusActive, result.Status)
		} else {
			assert.True(t, result.JustCompleted, "the 7th check-in completes the challenge")
			assert.Equal(t, challenge.StatusCompleted, result.Status)
		}
	}

	e, err := store.GetEnrollment(ctx, enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, e.CompletedDays)
	assert.Equal(t, 8, e.CurrentDay)
	assert.Equal(t, challenge.StatusCompleted, e.Status)
}

func TestCheckInDuplicateDaySlot(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	// A row where the current slot is already in the ledger, as left behind by
	// a concurrent writer or a seed script.
	enrollmentID := uuid.New()
	require.NoError(t, store.CreateEnrollment(ctx, &challenge.Enrollment{
		ID:            enrollmentID,
		UserID:        uuid.New(),
		ChallengeID:   challengeID,
		CurrentDay:    2,
		CompletedDays: []int{1, 2},
		Status:        challenge.StatusActive,
	}))

	_, err := svc.CheckIn(ctx, enrollmentID)
	assert.ErrorIs(t, err, challenge.ErrAlreadyCheckedIn)

	// No write happened.
	e, err := store.GetEnrollment(ctx, enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, e.CompletedDays)
	assert.Equal(t, 2, e.CurrentDay)
}

func TestCheckInTerminalAfterCompletion(t *testing.T) {
	svc, _, challengeID := newTestChallengeService(2)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)

	_, err = svc.CheckIn(ctx, enrollmentID)
	require.NoError(t, err)
	result, err := svc.CheckIn(ctx, enrollmentID)
	require.NoError(t, err)
	assert.True(t, result.JustCompleted)

	for i := 0; i < 3; i++ {
		_, err = svc.CheckIn(ctx, enrollmentID)
		assert.ErrorIs(t, err, challenge.ErrNotActive)
	}
}

func TestCheckInAbandonedEnrollment(t *testing.T) {
	svc, _, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)
	require.NoError(t, svc.AbandonEnrollment(ctx, enrollmentID))

	_, err = svc.CheckIn(ctx, enrollmentID)
	assert.ErrorIs(t, err, challenge.ErrNotActive)

	err = svc.AbandonEnrollment(ctx, enrollmentID)
	assert.ErrorIs(t, err, challenge.ErrNotActive)
}

func TestAbandonUnknownEnrollment(t *testing.T) {
	svc, _, _ := newTestChallengeService(7)

	err := svc.AbandonEnrollment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, challenge.ErrEnrollmentNotFound)
}

func TestCheckInDoesNotResurrectAbandonedEnrollment(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)

	// The abandon lands between the check-in's read and its conditional write.
	// The status guard in the update makes the write miss, and the retry sees
	// the terminal state.
	store.beforeUpdate = func() {
		store.beforeUpdate = nil
		require.NoError(t, store.AbandonEnrollment(ctx, enrollmentID))
	}

	_, err = svc.CheckIn(ctx, enrollmentID)
	assert.ErrorIs(t, err, challenge.ErrNotActive)

	e, err := store.GetEnrollment(ctx, enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusAbandoned, e.Status, "the check-in must not flip the row back to active")
	assert.Empty(t, e.CompletedDays)
	assert.Equal(t, 1, e.CurrentDay)
}

func TestCheckInUnknownEnrollment(t *testing.T) {
	svc, _, _ := newTestChallengeService(7)

	_, err := svc.CheckIn(context.Background(), uuid.New())
	assert.ErrorIs(t, err, challenge.ErrEnrollmentNotFound)
}

func TestCheckInRetriesSpuriousConflict(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)

	store.conflictsRemaining = 1

	result, err := svc.CheckIn(ctx, enrollmentID)
	require.NoError(t, err, "a single conflict should be absorbed by the retry loop")
	assert.Equal(t, 1, result.CompletedCount)
}

func TestCheckInGivesUpAfterBoundedRetries(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)

	store.conflictsRemaining = 100

	_, err = svc.CheckIn(ctx, enrollmentID)
	require.Error(t, err)
	assert.ErrorIs(t, err, challenge.ErrConflict)
	assert.Equal(t, 100-checkInMaxAttempts, store.conflictsRemaining)
}

func TestConcurrentCheckInsExactlyOneSuccess(t *testing.T) {
	svc, store, challengeID := newTestChallengeService(7)
	ctx := context.Background()

	enrollmentID, err := svc.Enroll(ctx, uuid.New(), challengeID)
	require.NoError(t, err)

	// Both calls read current_day=1 and reach the conditional update before
	// either write lands. One wins, the other re-reads, finds day 1 already
	// completed, and reports the duplicate.
	// The losing retry re-reads and bails out before writing again, so the
	// update hook fires exactly twice.
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.beforeUpdate = func() {
		barrier.Done()
		barrier.Wait()
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.CheckIn(ctx, enrollmentID)
			results <- err
		}()
	}

	var successes, duplicates int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, challenge.ErrAlreadyCheckedIn):
			duplicates++
		default:
			t.Fatalf("unexpected check-in error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one of the racing check-ins may succeed")
	assert.Equal(t, 1, duplicates)

	e, err := store.GetEnrollment(ctx, enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, e.CompletedDays, "the day must be counted once, not twice")
	assert.Equal(t, 2, e.CurrentDay)
}

func TestGetProgressView(t *testing.T) {
	store := newMemChallengeStore()
	def := &challenge.Definition{
		ID:           uuid.New(),
		Title:        "21-Day Transformation",
		DurationDays: 21,
		DailyTips:    map[int]string{4: "Swap one meal for a green juice."},
		Milestones: []challenge.Milestone{
			{Day: 3, Description: "First 3 days done"},
			{Day: 7, Description: "One week strong"},
		},
		IsActive: true,
	}
	store.addDefinition(def)
	svc := NewChallengeService(store, nil)

	ctx := context.Background()
	enrollmentID := uuid.New()
	require.NoError(t, store.CreateEnrollment(ctx, &challenge.Enrollment{
		ID:            enrollmentID,
		UserID:        uuid.New(),
		ChallengeID:   def.ID,
		CurrentDay:    4,
		CompletedDays: []int{1, 2, 3},
		Status:        challenge.StatusActive,
	}))

	view, err := svc.GetProgressView(ctx, enrollmentID)
	require.NoError(t, err)

	assert.Equal(t, "21-Day Transformation", view.Title)
	assert.Equal(t, 4, view.CurrentDay)
	assert.Equal(t, 3, view.CompletedCount)
	assert.Equal(t, 21, view.DurationDays)
	assert.Equal(t, 14, view.ProgressPercent)
	assert.Equal(t, 18, view.DaysRemaining)
	assert.False(t, view.CheckedInToday)
	assert.Equal(t, "Swap one meal for a green juice.", view.TodaysTip)
	require.Len(t, view.MilestonesReached, 1)
	assert.Equal(t, 3, view.MilestonesReached[0].Day)
}

func TestFindEnrollmentNoneActive(t *testing.T) {
	svc, _, challengeID := newTestChallengeService(7)

	e, err := svc.FindEnrollment(context.Background(), uuid.New(), challengeID)
	require.NoError(t, err)
	assert.Nil(t, e)
}
