package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"navyaJuicesAPI/internal/notification"
)

// PushProvider delivers a notification to a user's registered devices.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
	dispatcher   *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the push backend after construction; the service
// works without one (in-app notifications only).
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

// SetDispatcher routes pushes through the background worker pool instead of
// sending them inline with the request.
func (s *NotificationService) SetDispatcher(d *NotificationDispatcher) {
	s.dispatcher = d
}

// CreateNotification persists an in-app notification and pushes it to the
// user's devices on a best-effort basis.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) error {
	dataJSON, err := json.Marshal(req.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7)
	`
	_, err = s.db.Exec(ctx, query,
		uuid.New(),
		req.UserID,
		string(req.Type),
		req.Title,
		req.Message,
		dataJSON,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.enqueue(&pushJob{
			userID:  req.UserID,
			title:   req.Title,
			message: req.Message,
			data:    req.Data,
		})
		return nil
	}

	// No dispatcher wired (tests, one-off scripts): push inline, best effort.
	if s.pushProvider != nil {
		tokens, err := s.getDeviceTokens(ctx, req.UserID)
		if err != nil {
			log.Printf("Failed to load device tokens for user %s: %v", req.UserID, err)
			return nil
		}
		if err := s.pushProvider.SendPush(ctx, tokens, req.Title, req.Message, req.Data); err != nil {
			log.Printf("Push delivery failed for user %s: %v", req.UserID, err)
		}
	}

	return nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID) (*notification.ListResponse, error) {
	query := `
		SELECT id, user_id, type, title, message, is_read, data, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		var n notification.Notification
		var dataJSON []byte
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &dataJSON, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
				log.Printf("Bad notification data payload for %s: %v", n.ID, err)
			}
		}
		notifications = append(notifications, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	unread, err := s.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &notification.ListResponse{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// RegisterDevice upserts a push token. A token moving between accounts is
// reassigned to the latest user.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req *notification.RegisterDeviceRequest) error {
	query := `
		INSERT INTO device_tokens (id, user_id, token, platform)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token)
		DO UPDATE SET user_id = $2, platform = $4
	`
	_, err := s.db.Exec(ctx, query, uuid.New(), userID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
