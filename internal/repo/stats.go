// Package repo – aggregate metadata used for conditional responses (ETag
// generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

// NotificationsStats returns aggregate metadata for a user's notifications:
// the total number of rows and the greatest CreatedAt among them.
//
// When the user has no notifications, the returned count is 0 and latest is
// nil.
//
// Return values:
//   - count:  total notifications for userID
//   - latest: pointer to the greatest CreatedAt, or nil if no rows
//   - err:    database error, if any
func NotificationsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
