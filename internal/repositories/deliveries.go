package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository provides access to delivery records
type DeliveryRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *gorm.DB, readOnlyDB *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListRange returns the records of an owner+shift with date in [start, end],
// oldest first
func (r *DeliveryRepository) ListRange(ctx context.Context, ownerID uint, shift string, start, end time.Time) ([]models.DeliveryRecord, error) {
	var records []models.DeliveryRecord
	err := r.readOnlyDB.WithContext(ctx).
		Where("owner_id = ? AND shift = ? AND date BETWEEN ? AND ?", ownerID, shift, start, end).
		Order("date ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list delivery records in range")
	}
	return records, nil
}

// ListAll returns every record of an owner+shift, newest first
func (r *DeliveryRepository) ListAll(ctx context.Context, ownerID uint, shift string) ([]models.DeliveryRecord, error) {
	var records []models.DeliveryRecord
	err := r.readOnlyDB.WithContext(ctx).
		Where("owner_id = ? AND shift = ?", ownerID, shift).
		Order("date DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list delivery records")
	}
	return records, nil
}

// Upsert inserts the record or overwrites quantity, rate and amount of the
// row with the same natural key
func (r *DeliveryRepository) Upsert(ctx context.Context, record *models.DeliveryRecord) error {
	err := upsertDelivery(r.db.WithContext(ctx), record).Error
	if err != nil {
		return errors.Wrap(err, "failed to upsert delivery record")
	}
	return nil
}

func upsertDelivery(tx *gorm.DB, record *models.DeliveryRecord) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "owner_id"}, {Name: "shift"}, {Name: "date"}, {Name: "customer_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "rate", "amount", "updated_at"}),
	}).Create(record)
}

// DeleteByKey removes the record with the given natural key. Deleting an
// absent record is a no-op.
func (r *DeliveryRepository) DeleteByKey(ctx context.Context, ownerID uint, shift string, date time.Time, customerName string) error {
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND shift = ? AND date = ? AND customer_name = ?", ownerID, shift, date, customerName).
		Delete(&models.DeliveryRecord{}).Error
	if err != nil {
		return errors.Wrap(err, "failed to delete delivery record")
	}
	return nil
}

// DeleteByID removes a record owned by ownerID
func (r *DeliveryRepository) DeleteByID(ctx context.Context, ownerID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.DeliveryRecord{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete delivery record by ID")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "no delivery record deleted")
	}
	return nil
}

// Count returns the number of records of an owner+shift
func (r *DeliveryRepository) Count(ctx context.Context, ownerID uint, shift string) (int64, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("owner_id = ? AND shift = ?", ownerID, shift).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count delivery records")
	}
	return count, nil
}
