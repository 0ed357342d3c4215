package services

import (
	"context"
	"time"

	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/repositories"
)

// CustomerStore is the pricing and customer directory
type CustomerStore interface {
	ListActive(ctx context.Context, ownerID uint, shift string) ([]models.Customer, error)
	ListReminderEnabled(ctx context.Context) ([]models.Customer, error)
	GetByID(ctx context.Context, ownerID, id uint) (*models.Customer, error)
	FindByName(ctx context.Context, ownerID uint, shift, name string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Deactivate(ctx context.Context, ownerID, id uint) error
	ConfigureReminder(ctx context.Context, ownerID uint, shift string, settings repositories.ReminderSettings) (int64, error)
	UpdateLastReminderSent(ctx context.Context, ownerID uint, shift string, at time.Time) error
}

// DeliveryStore is the record store
type DeliveryStore interface {
	ListRange(ctx context.Context, ownerID uint, shift string, start, end time.Time) ([]models.DeliveryRecord, error)
	ListAll(ctx context.Context, ownerID uint, shift string) ([]models.DeliveryRecord, error)
	Upsert(ctx context.Context, record *models.DeliveryRecord) error
	DeleteByKey(ctx context.Context, ownerID uint, shift string, date time.Time, customerName string) error
	DeleteByID(ctx context.Context, ownerID, id uint) error
	Count(ctx context.Context, ownerID uint, shift string) (int64, error)
}

// PaymentStore is the daily payment ledger
type PaymentStore interface {
	ListByDate(ctx context.Context, ownerID uint, shift string, date time.Time) ([]models.PaymentStatus, error)
	SeedUnpaid(ctx context.Context, ownerID uint, shift string, date time.Time, names []string) error
	SetPaid(ctx context.Context, ownerID uint, shift string, date time.Time, customerName string, paid bool) error
}

// ClaimStore performs the compare-and-set reminder claim
type ClaimStore interface {
	Claim(ctx context.Context, ownerID uint, shift string, slot time.Time, claimant string) (bool, error)
}

// NotificationStore is the dispatch log
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, ownerID uint, shift string) ([]models.Notification, error)
}

// NotificationIndexer projects dispatch attempts into a search index
type NotificationIndexer interface {
	IndexNotification(ctx context.Context, notification *models.Notification) error
}

// UserStore holds owner accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

// CodeStore is a durable, time-bounded one-time code store keyed by target
type CodeStore interface {
	Put(ctx context.Context, code *models.OneTimeCode) error
	Get(ctx context.Context, target string) (*models.OneTimeCode, error)
	RecordMiss(ctx context.Context, target string) (int, error)
	Delete(ctx context.Context, target string) error
}
