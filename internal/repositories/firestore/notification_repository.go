package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/omnicart/api/internal/domain"
	pfirestore "github.com/omnicart/api/internal/platform/firestore"
)

const notificationsCollection = "notifications"

type notificationDocument struct {
	UserID    string    `firestore:"userId,omitempty"`
	Roles     []string  `firestore:"roles,omitempty"`
	Title     string    `firestore:"title"`
	Message   string    `firestore:"message"`
	IsRead    bool      `firestore:"isRead"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// NotificationRepository implements repositories.NotificationRepository backed by Firestore.
type NotificationRepository struct {
	provider      *pfirestore.Provider
	notifications *pfirestore.BaseRepository[notificationDocument]
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[notificationDocument](provider, notificationsCollection, nil, nil)
	return &NotificationRepository{provider: provider, notifications: base}, nil
}

// Insert persists a notification document.
func (r *NotificationRepository) Insert(ctx context.Context, notification domain.Notification) error {
	if r == nil || r.notifications == nil {
		return errors.New("notification repository not initialised")
	}
	if strings.TrimSpace(notification.ID) == "" {
		return errors.New("notification insert: id is required")
	}

	_, err := r.notifications.Set(ctx, notification.ID, notificationDocument{
		UserID:    strings.TrimSpace(notification.UserID),
		Roles:     notification.Roles,
		Title:     strings.TrimSpace(notification.Title),
		Message:   notification.Message,
		IsRead:    notification.IsRead,
		CreatedAt: notification.CreatedAt.UTC(),
	})
	return err
}

// FindByID loads a single notification by document id.
func (r *NotificationRepository) FindByID(ctx context.Context, notificationID string) (domain.Notification, error) {
	if r == nil || r.notifications == nil {
		return domain.Notification{}, errors.New("notification repository not initialised")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return domain.Notification{}, errors.New("notification find: id is required")
	}

	doc, err := r.notifications.Get(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListForUser merges notifications addressed to the user directly with those
// addressed to any of the user's roles, newest first. Firestore cannot OR the
// two predicates in one query, so the merge happens client-side.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, roles []string, limit int) ([]domain.Notification, error) {
	if r == nil || r.notifications == nil {
		return nil, errors.New("notification repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("notification list: user id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	direct, err := r.notifications.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}

	var forRoles []pfirestore.Document[notificationDocument]
	if len(roles) > 0 {
		forRoles, err = r.notifications.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("roles", "array-contains-any", roles).OrderBy("createdAt", firestore.Desc).Limit(limit)
		})
		if err != nil {
			return nil, err
		}
	}

	merged := make([]domain.Notification, 0, len(direct)+len(forRoles))
	seen := make(map[string]struct{}, len(direct)+len(forRoles))
	for _, doc := range append(direct, forRoles...) {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		seen[doc.ID] = struct{}{}
		merged = append(merged, doc.Data.toDomain(doc.ID))
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// MarkRead flips the read flag on a notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	if r == nil || r.notifications == nil {
		return errors.New("notification repository not initialised")
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return errors.New("notification mark read: id is required")
	}

	_, err := r.notifications.Update(ctx, notificationID, []firestore.Update{
		{Path: "isRead", Value: true},
	})
	return err
}

func (d notificationDocument) toDomain(id string) domain.Notification {
	return domain.Notification{
		ID:        id,
		UserID:    d.UserID,
		Roles:     d.Roles,
		Title:     d.Title,
		Message:   d.Message,
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt,
	}
}
