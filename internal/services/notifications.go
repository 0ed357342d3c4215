package services

import (
	"context"
	"strings"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
)

// NotificationService reads the dispatch log
type NotificationService struct {
	notifications NotificationStore
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns an owner's notifications newest first
func (s *NotificationService) List(ctx context.Context, ownerID uint, shift string) ([]models.Notification, error) {
	if ownerID == 0 {
		return nil, invalidf("owner id is required")
	}
	notifications, err := s.notifications.List(ctx, ownerID, strings.TrimSpace(shift))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}
