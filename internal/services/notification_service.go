package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/omnicart/api/internal/domain"
	"github.com/omnicart/api/internal/repositories"
)

const notificationIDPrefix = "ntf_"

var (
	// ErrNotificationInvalidInput signals the caller provided invalid data.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")
	// ErrNotificationNotFound indicates the notification could not be located.
	ErrNotificationNotFound = errors.New("notification: not found")
)

// NotificationServiceDeps bundles collaborators required to construct the notification service.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Publisher     NotificationEventPublisher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type notificationService struct {
	notifications repositories.NotificationRepository
	publisher     NotificationEventPublisher
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

// NewNotificationService wires dependencies into a concrete NotificationService implementation.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: notification repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationService{
		notifications: deps.Notifications,
		publisher:     deps.Publisher,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// NotifyUser persists and publishes a user-addressed notification. Both writes
// are best-effort: failures are logged and never reach the caller.
func (s *notificationService) NotifyUser(ctx context.Context, userID, title, message string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		s.logger(ctx, "notification.dispatch.skipped", map[string]any{
			"reason": "empty user id",
			"title":  title,
		})
		return
	}
	s.dispatch(ctx, Notification{
		ID:        notificationIDPrefix + s.newID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
}

// NotifyRole persists and publishes a role-addressed notification visible to
// every user carrying the role.
func (s *notificationService) NotifyRole(ctx context.Context, role, title, message string) {
	role = strings.TrimSpace(role)
	if role == "" {
		s.logger(ctx, "notification.dispatch.skipped", map[string]any{
			"reason": "empty role",
			"title":  title,
		})
		return
	}
	s.dispatch(ctx, Notification{
		ID:        notificationIDPrefix + s.newID(),
		Roles:     []string{role},
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
}

func (s *notificationService) dispatch(ctx context.Context, notification Notification) {
	if err := s.notifications.Insert(ctx, notification); err != nil {
		s.logger(ctx, "notification.persist.failed", map[string]any{
			"notification": notification.ID,
			"error":        err.Error(),
		})
	}

	if s.publisher == nil {
		return
	}
	event := NotificationEvent{
		NotificationID: notification.ID,
		UserID:         notification.UserID,
		Roles:          notification.Roles,
		Title:          notification.Title,
		Message:        notification.Message,
		OccurredAt:     notification.CreatedAt,
	}
	if _, err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger(ctx, "notification.publish.failed", map[string]any{
			"notification": notification.ID,
			"error":        err.Error(),
		})
	}
}

func (s *notificationService) ListNotifications(ctx context.Context, actor Actor, limit int) ([]domain.Notification, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrNotificationInvalidInput)
	}

	notifications, err := s.notifications.ListForUser(ctx, actor.UserID, actor.Roles, limit)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return notifications, nil
}

func (s *notificationService) MarkNotificationRead(ctx context.Context, actor Actor, notificationID string) error {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return fmt.Errorf("%w: notification id is required", ErrNotificationInvalidInput)
	}

	notification, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if !canReadNotification(actor, notification) {
		// Foreign notifications are indistinguishable from missing ones.
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, notificationID)
	}

	if err := s.notifications.MarkRead(ctx, notificationID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// canReadNotification reports whether the notification is addressed to the
// actor directly or to one of the actor's roles.
func canReadNotification(actor Actor, notification Notification) bool {
	if notification.UserID != "" && notification.UserID == actor.UserID {
		return true
	}
	return actor.HasAnyRole(notification.Roles...)
}

func (s *notificationService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrNotificationNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("notification: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *notificationService) now() time.Time {
	return s.clock()
}
