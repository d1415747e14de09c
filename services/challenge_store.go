package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"navyaJuicesAPI/internal/challenge"
)

const uniqueViolationCode = "23505"

// ChallengeStore is the Postgres implementation of challenge.Store.
type ChallengeStore struct {
	db *pgxpool.Pool
}

func NewChallengeStore(db *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{db: db}
}

func (s *ChallengeStore) ListDefinitions(ctx context.Context) ([]*challenge.Definition, error) {
	query := `
		SELECT id, title, description, duration_days, is_active, created_at
		FROM challenge_definitions
		WHERE is_active = true
		ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var defs []*challenge.Definition
	for rows.Next() {
		var def challenge.Definition
		err := rows.Scan(
			&def.ID,
			&def.Title,
			&def.Description,
			&def.DurationDays,
			&def.IsActive,
			&def.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		defs = append(defs, &def)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, def := range defs {
		if err := s.loadTipsAndMilestones(ctx, def); err != nil {
			return nil, err
		}
	}

	return defs, nil
}

func (s *ChallengeStore) GetDefinition(ctx context.Context, challengeID uuid.UUID) (*challenge.Definition, error) {
	var def challenge.Definition
	query := `
		SELECT id, title, description, duration_days, is_active, created_at
		FROM challenge_definitions
		WHERE id = $1
	`
	err := s.db.QueryRow(ctx, query, challengeID).Scan(
		&def.ID,
		&def.Title,
		&def.Description,
		&def.DurationDays,
		&def.IsActive,
		&def.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, challenge.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	if err := s.loadTipsAndMilestones(ctx, &def); err != nil {
		return nil, err
	}

	return &def, nil
}

func (s *ChallengeStore) loadTipsAndMilestones(ctx context.Context, def *challenge.Definition) error {
	def.DailyTips = make(map[int]string)
	tipRows, err := s.db.Query(ctx,
		`SELECT day, tip FROM challenge_tips WHERE challenge_id = $1 ORDER BY day`, def.ID)
	if err != nil {
		return fmt.Errorf("failed to load tips: %w", err)
	}
	defer tipRows.Close()
	for tipRows.Next() {
		var day int
		var tip string
		if err := tipRows.Scan(&day, &tip); err != nil {
			return err
		}
		def.DailyTips[day] = tip
	}
	if err = tipRows.Err(); err != nil {
		return err
	}

	msRows, err := s.db.Query(ctx,
		`SELECT day, description FROM challenge_milestones WHERE challenge_id = $1 ORDER BY day`, def.ID)
	if err != nil {
		return fmt.Errorf("failed to load milestones: %w", err)
	}
	defer msRows.Close()
	def.Milestones = nil
	for msRows.Next() {
		var m challenge.Milestone
		if err := msRows.Scan(&m.Day, &m.Description); err != nil {
			return err
		}
		def.Milestones = append(def.Milestones, m)
	}
	return msRows.Err()
}

func (s *ChallengeStore) GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (*challenge.Enrollment, error) {
	e, err := s.scanEnrollment(ctx, `
		SELECT id, user_id, challenge_id, start_date, current_day, completed_days, status
		FROM challenge_enrollments
		WHERE id = $1
	`, enrollmentID)
	if err == pgx.ErrNoRows {
		return nil, challenge.ErrEnrollmentNotFound
	}
	return e, err
}

func (s *ChallengeStore) FindActiveEnrollment(ctx context.Context, userID, challengeID uuid.UUID) (*challenge.Enrollment, error) {
	e, err := s.scanEnrollment(ctx, `
		SELECT id, user_id, challenge_id, start_date, current_day, completed_days, status
		FROM challenge_enrollments
		WHERE user_id = $1 AND challenge_id = $2 AND status = 'active'
		ORDER BY start_date DESC
		LIMIT 1
	`, userID, challengeID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *ChallengeStore) scanEnrollment(ctx context.Context, query string, args ...any) (*challenge.Enrollment, error) {
	var e challenge.Enrollment
	var status string
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&e.ID,
		&e.UserID,
		&e.ChallengeID,
		&e.StartDate,
		&e.CurrentDay,
		&e.CompletedDays,
		&status,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	e.Status, err = challenge.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if e.CompletedDays == nil {
		e.CompletedDays = []int{}
	}
	return &e, nil
}

func (s *ChallengeStore) CreateEnrollment(ctx context.Context, e *challenge.Enrollment) error {
	query := `
		INSERT INTO challenge_enrollments (id, user_id, challenge_id, start_date, current_day, completed_days, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.ChallengeID,
		e.StartDate,
		e.CurrentDay,
		e.CompletedDays,
		string(e.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// idx_one_active_enrollment fired: a concurrent enroll won.
			return challenge.ErrConflict
		}
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return nil
}

// ConditionalUpdateEnrollment applies the check-in write only while current_day
// still holds its expected value and the row is still active. Zero rows affected
// means another check-in got there first, the attempt was abandoned under us, or
// the row is gone; either way the caller re-reads.
func (s *ChallengeStore) ConditionalUpdateEnrollment(ctx context.Context, enrollmentID uuid.UUID, expectedCurrentDay int, update challenge.EnrollmentUpdate) error {
	query := `
		UPDATE challenge_enrollments
		SET current_day = $3, completed_days = $4, status = $5
		WHERE id = $1 AND current_day = $2 AND status = 'active'
	`
	ct, err := s.db.Exec(ctx, query,
		enrollmentID,
		expectedCurrentDay,
		update.CurrentDay,
		update.CompletedDays,
		string(update.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return challenge.ErrConflict
	}
	return nil
}

// AbandonEnrollment is the administrative exit from an active attempt. It never
// touches completed or already abandoned rows.
func (s *ChallengeStore) AbandonEnrollment(ctx context.Context, enrollmentID uuid.UUID) error {
	ct, err := s.db.Exec(ctx, `
		UPDATE challenge_enrollments
		SET status = 'abandoned'
		WHERE id = $1 AND status = 'active'
	`, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to abandon enrollment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Tell a missing row apart from one already in a terminal state.
		if _, err := s.GetEnrollment(ctx, enrollmentID); err != nil {
			return err
		}
		return challenge.ErrNotActive
	}
	return nil
}
