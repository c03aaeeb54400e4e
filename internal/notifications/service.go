// Package notifications delivers and tracks per-user notices.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prokemal2012/Filx/internal/logging"
	"github.com/prokemal2012/Filx/internal/models"
	"github.com/prokemal2012/Filx/internal/ranking"
	"github.com/prokemal2012/Filx/internal/storage"
	"github.com/prokemal2012/Filx/internal/validation"
)

// Store is the subset of storage the notification service uses
type Store interface {
	storage.NotificationStore
	storage.UserStore
}

// Service manages notifications
type Service struct {
	store Store
	now   ranking.Clock
	newID func() string
}

// NewService creates a notification service. A nil clock uses the wall clock.
func NewService(store Store, now ranking.Clock) *Service {
	if now == nil {
		now = ranking.SystemClock
	}
	return &Service{store: store, now: now, newID: uuid.NewString}
}

// Inbox is a user's notifications, newest first
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unreadCount"`
}

// CreateInput is the body of a new notification. An empty TargetUserID
// addresses the caller.
type CreateInput struct {
	Title        string         `json:"title" validate:"required,max=200"`
	Message      string         `json:"message" validate:"required,max=1000"`
	Type         string         `json:"type" validate:"required,max=50"`
	Data         map[string]any `json:"data"`
	TargetUserID string         `json:"targetUserId"`
}

// MarkInput selects what to mark as read: one notification or all of them
type MarkInput struct {
	NotificationID string `json:"notificationId"`
	MarkAll        bool   `json:"markAll"`
}

// MarkResult reports how many notifications a mark request changed
type MarkResult struct {
	Message string `json:"message"`
	Marked  int    `json:"marked"`
}

// List returns the notifications addressed to userID
func (s *Service) List(ctx context.Context, userID string) (*Inbox, error) {
	list, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	inbox := &Inbox{Notifications: make([]models.Notification, 0, len(list))}
	for _, n := range list {
		if !n.Read {
			inbox.Unread++
		}
		inbox.Notifications = append(inbox.Notifications, n)
	}
	return inbox, nil
}

// Create sends a notification from userID to the target user
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	in.Type = strings.TrimSpace(in.Type)
	if err := validation.Struct("Missing required fields", in); err != nil {
		return nil, err
	}

	target := in.TargetUserID
	if target == "" {
		target = userID
	}
	if target != userID {
		if _, err := s.store.GetUser(ctx, target); err != nil {
			return nil, err
		}
	}

	n := models.Notification{
		ID:        s.newID(),
		UserID:    target,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		CreatedAt: s.now(),
	}
	if err := s.store.AddNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("add notification: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("from", userID).
		Str("to", target).
		Str("type", n.Type).
		Msg("notification created")
	return &n, nil
}

// Mark marks one notification, or every notification with MarkAll, as read
func (s *Service) Mark(ctx context.Context, userID string, in MarkInput) (*MarkResult, error) {
	switch {
	case in.MarkAll:
		n, err := s.store.MarkAllNotificationsRead(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("mark notifications read: %w", err)
		}
		return &MarkResult{Message: fmt.Sprintf("Marked %d notifications as read", n), Marked: n}, nil
	case in.NotificationID != "":
		if err := s.store.MarkNotificationRead(ctx, userID, in.NotificationID); err != nil {
			return nil, err
		}
		return &MarkResult{Message: "Notification marked as read", Marked: 1}, nil
	}
	return nil, models.NewFieldError("Missing notificationId or markAll flag", "notificationId", "Notification ID or markAll is required")
}
