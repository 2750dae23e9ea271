// Package services – NotificationService
//
// NotificationService is the user-visible notification channel. The
// executor hands it exactly one notification per resolved mutation; views
// poll List to render toasts. Rows are persisted so a view that reconnects
// still sees the outcome of a mutation it issued.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/repo"
)

// ErrNotificationNotFound indicates the notification does not exist or is not
// owned by the caller.
var ErrNotificationNotFound = repo.ErrNotFound

// NotificationService persists and lists notifications.
type NotificationService struct {
	DB *gorm.DB
	// DefaultLimit bounds List when the caller passes no limit.
	DefaultLimit int
	// IdempotencyTTL is how long a remembered mutation answer is replayed.
	// Zero uses 24h.
	IdempotencyTTL time.Duration
}

// Notify stores n.
func (s *NotificationService) Notify(ctx context.Context, n *domain.Notification) error {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Notify",
		trace.WithAttributes(
			attribute.String("user.id", n.UserID),
			attribute.String("mutation.id", n.MutationID),
			attribute.String("level", string(n.Level)),
		),
	)
	defer span.End()

	return repo.CreateNotification(ctx, s.DB, n)
}

// List returns the caller's newest notifications, newest first. A non-zero
// since returns only notifications created after it.
func (s *NotificationService) List(ctx context.Context, userID string, since time.Time, limit int) ([]domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = s.DefaultLimit
	}
	items, err := repo.ListNotifications(ctx, s.DB, userID, since, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// Get returns one notification owned by userID.
func (s *NotificationService) Get(ctx context.Context, userID, id string) (*domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("notification.id", id),
		),
	)
	defer span.End()

	n, err := repo.GetNotification(ctx, s.DB, id, userID)
	if err != nil {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// Stats returns the caller's notification count and newest timestamp, for
// ETag generation.
func (s *NotificationService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.NotificationsStats(ctx, s.DB, userID)
}

// Replay returns the notification and status remembered for an
// Idempotency-Key in scope. ErrNotificationNotFound means no live record.
func (s *NotificationService) Replay(ctx context.Context, userID, scope, key string) (*domain.Notification, int, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Replay",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("idempotency.scope", scope),
		),
	)
	defer span.End()

	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrNotificationNotFound
		}
		return nil, 0, err
	}
	n, err := repo.GetNotification(ctx, s.DB, rec.NotificationID, userID)
	if err != nil {
		return nil, 0, ErrNotificationNotFound
	}
	return n, rec.Status, nil
}

// Remember binds an answered mutation to its Idempotency-Key. A concurrent
// duplicate is not an error: the first answer wins.
func (s *NotificationService) Remember(ctx context.Context, userID, scope, key, notificationID string, status int) error {
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, notificationID, status, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Prune deletes notifications older than maxAge and expired idempotency
// records.
func (s *NotificationService) Prune(ctx context.Context, maxAge time.Duration) (notifications, records int64, err error) {
	now := time.Now().UTC()
	if notifications, err = repo.PruneNotifications(ctx, s.DB, now.Add(-maxAge)); err != nil {
		return 0, 0, err
	}
	records, err = repo.PurgeExpiredIdempotency(ctx, s.DB, now)
	return notifications, records, err
}
