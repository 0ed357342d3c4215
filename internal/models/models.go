package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Customer is a recurring delivery customer scoped to an owner and a shift.
// It also carries the owner+shift reminder configuration, replicated on every
// customer row of that shift.
type Customer struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	OwnerID              uint       `gorm:"not null;index:idx_customers_owner_shift" json:"ownerId"`
	FullName             string     `gorm:"not null" json:"fullName"`
	Nickname             *string    `json:"nickname"`
	Shift                string     `gorm:"not null;index:idx_customers_owner_shift" json:"shift"`
	PricePerUnit         *float64   `json:"pricePerUnit"`
	Active               bool       `gorm:"not null" json:"active"`
	ReminderEnabled      bool       `gorm:"not null;index" json:"reminderEnabled"`
	ReminderTime         *string    `gorm:"size:5" json:"reminderTime"`
	ReminderShift        *string    `json:"reminderShift"`
	ReminderIntervalDays int        `gorm:"not null;default:1" json:"reminderIntervalDays"`
	LastReminderSent     *time.Time `json:"lastReminderSent"`
}

// Price returns the current price per unit, treating an unset price as zero
func (c Customer) Price() float64 {
	if c.PricePerUnit == nil {
		return 0
	}
	return *c.PricePerUnit
}

// ReminderSlotShift returns the shift the reminder applies to
func (c Customer) ReminderSlotShift() string {
	if c.ReminderShift != nil && *c.ReminderShift != "" {
		return *c.ReminderShift
	}
	return c.Shift
}

// CopyReminder takes over the reminder settings of another customer's slot
func (c *Customer) CopyReminder(from Customer) {
	c.ReminderEnabled = from.ReminderEnabled
	c.ReminderTime = from.ReminderTime
	c.ReminderShift = from.ReminderShift
	c.ReminderIntervalDays = from.ReminderIntervalDays
	c.LastReminderSent = from.LastReminderSent
}

// ResetReminder clears the reminder settings back to a disabled slot of the
// customer's own shift
func (c *Customer) ResetReminder() {
	c.ReminderEnabled = false
	c.ReminderTime = nil
	c.ReminderShift = nil
	c.ReminderIntervalDays = 1
	c.LastReminderSent = nil
}

// Matches reports whether a free-text record label refers to this customer
func (c Customer) Matches(label string) bool {
	key := NormalizeName(label)
	if key == "" {
		return false
	}
	if NormalizeName(c.FullName) == key {
		return true
	}
	return c.Nickname != nil && NormalizeName(*c.Nickname) == key
}

// DeliveryRecord is one customer's delivered quantity for a shift on a day.
// (owner, shift, date, customer name) is unique.
type DeliveryRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	OwnerID      uint      `gorm:"not null;uniqueIndex:idx_delivery_natural_key,priority:1" json:"ownerId"`
	Shift        string    `gorm:"not null;uniqueIndex:idx_delivery_natural_key,priority:2" json:"shift"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:idx_delivery_natural_key,priority:3" json:"date"`
	CustomerName string    `gorm:"not null;uniqueIndex:idx_delivery_natural_key,priority:4" json:"customerName"`
	Quantity     float64   `gorm:"not null" json:"quantity"`
	Rate         float64   `gorm:"not null" json:"rate"`
	Amount       float64   `gorm:"not null" json:"amount"`
}

// PaymentStatus records whether a customer paid for a shift on a day
type PaymentStatus struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	OwnerID      uint      `gorm:"not null;uniqueIndex:idx_payment_natural_key,priority:1" json:"ownerId"`
	Shift        string    `gorm:"not null;uniqueIndex:idx_payment_natural_key,priority:2" json:"shift"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:idx_payment_natural_key,priority:3" json:"date"`
	CustomerName string    `gorm:"not null;uniqueIndex:idx_payment_natural_key,priority:4" json:"customerName"`
	Paid         bool      `gorm:"not null" json:"paid"`
}

// TableName overrides the default table name
func (PaymentStatus) TableName() string {
	return "payments"
}

// ReminderClaim is the single compare-and-set row per (owner, shift) that
// decides which scheduler instance dispatches a reminder for a minute.
type ReminderClaim struct {
	OwnerID   uint      `gorm:"primaryKey;autoIncrement:false" json:"ownerId"`
	Shift     string    `gorm:"primaryKey" json:"shift"`
	ClaimedAt time.Time `gorm:"not null" json:"claimedAt"`
	ClaimedBy string    `gorm:"not null" json:"claimedBy"`
}

// Notification statuses
const (
	NotificationSent   = "SENT"
	NotificationFailed = "FAILED"
)

// Notification is the log of every reminder dispatch attempt
type Notification struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	OwnerID  uint      `gorm:"not null;index:idx_notifications_owner_shift" json:"ownerId"`
	Shift    string    `gorm:"not null;index:idx_notifications_owner_shift" json:"shift"`
	Subject  string    `gorm:"not null" json:"subject"`
	Body     string    `gorm:"type:text" json:"body"`
	Type     string    `gorm:"not null" json:"type"`
	Trigger  string    `gorm:"not null" json:"trigger"`
	Status   string    `gorm:"not null" json:"status"`
	Error    string    `json:"error,omitempty"`
	DateSent time.Time `gorm:"not null;index" json:"dateSent"`
}

// User is an owner account
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
}

// OneTimeCode is a password reset code keyed by its confirmation target
type OneTimeCode struct {
	Target    string    `gorm:"primaryKey" json:"target"`
	CodeHash  string    `gorm:"not null" json:"-"`
	Attempts  int       `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Expired reports whether the code is no longer usable at now
func (c OneTimeCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// NormalizeName lower-cases and trims a customer label for matching
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CivilDate returns the calendar day of t in loc, as midnight UTC.
// Every stored date column uses this representation.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// SetupModels runs the schema migrations for every model
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Customer{},
		&DeliveryRecord{},
		&PaymentStatus{},
		&ReminderClaim{},
		&Notification{},
		&OneTimeCode{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to auto-migrate models")
	}
	return nil
}
