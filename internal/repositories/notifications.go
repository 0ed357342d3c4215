package repositories

import (
	"context"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// NotificationRepository provides access to the dispatch log
type NotificationRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB, readOnlyDB *gorm.DB) *NotificationRepository {
	return &NotificationRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create records a dispatch attempt
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return errors.Wrap(err, "failed to create notification")
	}
	return nil
}

// List returns an owner's notifications newest first, optionally for one shift
func (r *NotificationRepository) List(ctx context.Context, ownerID uint, shift string) ([]models.Notification, error) {
	var notifications []models.Notification
	q := r.readOnlyDB.WithContext(ctx).Where("owner_id = ?", ownerID)
	if shift != "" {
		q = q.Where("shift = ?", shift)
	}
	if err := q.Order("date_sent DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}
