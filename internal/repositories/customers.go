package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ReminderSettings is the owner+shift reminder configuration written to
// every customer row of that shift
type ReminderSettings struct {
	Enabled      bool
	Time         string
	IntervalDays int
}

// CustomerRepository provides access to customer profiles
type CustomerRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB, readOnlyDB *gorm.DB) *CustomerRepository {
	return &CustomerRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListActive returns the active customers of an owner in insertion order.
// An empty shift lists every shift.
func (r *CustomerRepository) ListActive(ctx context.Context, ownerID uint, shift string) ([]models.Customer, error) {
	var customers []models.Customer
	q := r.readOnlyDB.WithContext(ctx).Where("owner_id = ? AND active = ?", ownerID, true)
	if shift != "" {
		q = q.Where("shift = ?", shift)
	}
	if err := q.Order("id ASC").Find(&customers).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list active customers")
	}
	return customers, nil
}

// ListReminderEnabled returns every active customer, across owners, whose
// reminder is enabled with a time set
func (r *CustomerRepository) ListReminderEnabled(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.WithContext(ctx).
		Where("reminder_enabled = ? AND active = ? AND reminder_time IS NOT NULL", true, true).
		Order("owner_id ASC, id ASC").
		Find(&customers).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminder-enabled customers")
	}
	return customers, nil
}

// GetByID gets a customer owned by ownerID
func (r *CustomerRepository) GetByID(ctx context.Context, ownerID, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.readOnlyDB.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&customer).Error
	if err != nil {
		return nil, translate(err, "failed to get customer by ID")
	}
	return &customer, nil
}

// FindByName finds the first active customer of a shift whose full name or
// nickname matches, ignoring case and surrounding whitespace
func (r *CustomerRepository) FindByName(ctx context.Context, ownerID uint, shift, name string) (*models.Customer, error) {
	var customer models.Customer
	key := models.NormalizeName(name)
	err := r.readOnlyDB.WithContext(ctx).
		Where("owner_id = ? AND shift = ? AND active = ?", ownerID, shift, true).
		Where("LOWER(TRIM(full_name)) = ? OR LOWER(TRIM(nickname)) = ?", key, key).
		Order("id ASC").
		First(&customer).Error
	if err != nil {
		return nil, translate(err, "failed to find customer by name")
	}
	return &customer, nil
}

// Count returns the number of stored customers
func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.readOnlyDB.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count customers")
	}
	return count, nil
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return translate(r.db.WithContext(ctx).Create(customer).Error, "failed to create customer")
}

// Update saves the editable profile fields of a customer together with the
// reminder slot it belongs to
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	result := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND owner_id = ?", customer.ID, customer.OwnerID).
		Updates(map[string]interface{}{
			"full_name":              customer.FullName,
			"nickname":               customer.Nickname,
			"shift":                  customer.Shift,
			"price_per_unit":         customer.PricePerUnit,
			"active":                 customer.Active,
			"reminder_enabled":       customer.ReminderEnabled,
			"reminder_time":          customer.ReminderTime,
			"reminder_shift":         customer.ReminderShift,
			"reminder_interval_days": customer.ReminderIntervalDays,
			"last_reminder_sent":     customer.LastReminderSent,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update customer")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "no customer updated")
	}
	return nil
}

// Deactivate soft-deletes a customer
func (r *CustomerRepository) Deactivate(ctx context.Context, ownerID, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("active", false)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to deactivate customer")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "no customer deactivated")
	}
	return nil
}

// ConfigureReminder writes the reminder settings to every customer of the
// owner's shift and returns the number of rows changed. Enabling clears the
// last-sent marker. Rows that still hold the shift's slot after moving to
// another shift are detached first.
func (r *CustomerRepository) ConfigureReminder(ctx context.Context, ownerID uint, shift string, settings ReminderSettings) (int64, error) {
	updates := map[string]interface{}{
		"reminder_enabled":       settings.Enabled,
		"reminder_time":          settings.Time,
		"reminder_shift":         shift,
		"reminder_interval_days": settings.IntervalDays,
	}
	if settings.Enabled {
		updates["last_reminder_sent"] = nil
	}

	var rows int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := detachReminder(tx, ownerID, shift).Error; err != nil {
			return err
		}
		result := configureReminder(tx, ownerID, shift, updates)
		if result.Error != nil {
			return result.Error
		}
		rows = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to save reminder settings")
	}
	return rows, nil
}

func detachReminder(tx *gorm.DB, ownerID uint, shift string) *gorm.DB {
	return tx.Model(&models.Customer{}).
		Where("owner_id = ? AND reminder_shift = ? AND shift <> ?", ownerID, shift, shift).
		Updates(map[string]interface{}{
			"reminder_enabled":       false,
			"reminder_time":          nil,
			"reminder_shift":         nil,
			"reminder_interval_days": 1,
			"last_reminder_sent":     nil,
		})
}

func configureReminder(tx *gorm.DB, ownerID uint, shift string, updates map[string]interface{}) *gorm.DB {
	return tx.Model(&models.Customer{}).
		Where("owner_id = ? AND shift = ?", ownerID, shift).
		Updates(updates)
}

// UpdateLastReminderSent advances the last-sent marker of an owner+shift
// reminder slot
func (r *CustomerRepository) UpdateLastReminderSent(ctx context.Context, ownerID uint, shift string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("owner_id = ? AND (reminder_shift = ? OR (reminder_shift IS NULL AND shift = ?))", ownerID, shift, shift).
		Update("last_reminder_sent", at).Error
	if err != nil {
		return errors.Wrap(err, "failed to update last reminder sent")
	}
	return nil
}
