package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository provides access to the daily payment ledger
type PaymentRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, readOnlyDB *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListByDate returns the payment rows of an owner+shift for one day, sorted
// by customer name. The write database is used so freshly seeded rows are
// visible.
func (r *PaymentRepository) ListByDate(ctx context.Context, ownerID uint, shift string, date time.Time) ([]models.PaymentStatus, error) {
	var payments []models.PaymentStatus
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND shift = ? AND date = ?", ownerID, shift, date).
		Order("customer_name ASC").
		Find(&payments).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payments")
	}
	return payments, nil
}

// SeedUnpaid inserts an unpaid row for every name that has none yet on the
// given day. Existing rows are left untouched.
func (r *PaymentRepository) SeedUnpaid(ctx context.Context, ownerID uint, shift string, date time.Time, names []string) error {
	if len(names) == 0 {
		return nil
	}

	rows := make([]models.PaymentStatus, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.PaymentStatus{
			OwnerID:      ownerID,
			Shift:        shift,
			Date:         date,
			CustomerName: name,
			Paid:         false,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Skip names already present under a different case
		var existing []string
		if err := tx.Model(&models.PaymentStatus{}).
			Where("owner_id = ? AND shift = ? AND date = ?", ownerID, shift, date).
			Pluck("LOWER(TRIM(customer_name))", &existing).Error; err != nil {
			return err
		}
		seen := make(map[string]bool, len(existing))
		for _, name := range existing {
			seen[name] = true
		}

		missing := rows[:0]
		for _, row := range rows {
			key := models.NormalizeName(row.CustomerName)
			if seen[key] {
				continue
			}
			seen[key] = true
			missing = append(missing, row)
		}
		if len(missing) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&missing).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to seed unpaid payments")
	}
	return nil
}

// SetPaid sets the paid flag of the day's row matching the customer name
// case-insensitively, creating the row when none matches
func (r *PaymentRepository) SetPaid(ctx context.Context, ownerID uint, shift string, date time.Time, customerName string, paid bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentStatus{}).
			Where("owner_id = ? AND shift = ? AND date = ? AND LOWER(TRIM(customer_name)) = ?",
				ownerID, shift, date, models.NormalizeName(customerName)).
			Update("paid", paid)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		row := &models.PaymentStatus{
			OwnerID:      ownerID,
			Shift:        shift,
			Date:         date,
			CustomerName: customerName,
			Paid:         paid,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "owner_id"}, {Name: "shift"}, {Name: "date"}, {Name: "customer_name"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"paid", "updated_at"}),
		}).Create(row).Error
	})
	if err != nil {
		return errors.Wrap(err, "failed to save payment")
	}
	return nil
}
