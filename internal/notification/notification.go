package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeOrderStatus        Type = "order_status"
	TypeChallengeCompleted Type = "challenge_completed"
	TypeChallengeReminder  Type = "challenge_reminder"
)

type Notification struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	Type      Type           `json:"type" db:"type"`
	Title     string         `json:"title" db:"title"`
	Message   string         `json:"message" db:"message"`
	IsRead    bool           `json:"is_read" db:"is_read"`
	Data      map[string]any `json:"data" db:"data"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
}

type CreateNotificationRequest struct {
	UserID  uuid.UUID      `json:"user_id" validate:"required"`
	Type    Type           `json:"type" validate:"required"`
	Title   string         `json:"title" validate:"required"`
	Message string         `json:"message" validate:"required"`
	Data    map[string]any `json:"data"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}
