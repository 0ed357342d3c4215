package repositories

import (
	"context"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository provides access to owner accounts
type UserRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, readOnlyDB *gorm.DB) *UserRepository {
	return &UserRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create creates a new user. A taken email yields ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error, "failed to create user")
}

// GetByEmail gets a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err, "failed to get user by email")
	}
	return &user, nil
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update password")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "no user updated")
	}
	return nil
}

// CodeRepository is the database-backed one-time code store
type CodeRepository struct {
	db *gorm.DB
}

// NewCodeRepository creates a new one-time code repository
func NewCodeRepository(db *gorm.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Put stores a code, replacing any earlier code for the same target
func (r *CodeRepository) Put(ctx context.Context, code *models.OneTimeCode) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "attempts", "expires_at", "created_at"}),
	}).Create(code).Error
	if err != nil {
		return errors.Wrap(err, "failed to store one-time code")
	}
	return nil
}

// Get returns the stored code for a target. Expiry is left to the caller.
func (r *CodeRepository) Get(ctx context.Context, target string) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	err := r.db.WithContext(ctx).Where("target = ?", target).First(&code).Error
	if err != nil {
		return nil, translate(err, "failed to get one-time code")
	}
	return &code, nil
}

// RecordMiss counts a wrong code against the stored code of a target and
// returns the misses so far
func (r *CodeRepository) RecordMiss(ctx context.Context, target string) (int, error) {
	var code models.OneTimeCode
	result := recordMiss(r.db.WithContext(ctx), target, &code)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to record one-time code attempt")
	}
	if result.RowsAffected == 0 {
		return 0, errors.Wrap(ErrNotFound, "no one-time code to record an attempt against")
	}
	return code.Attempts, nil
}

func recordMiss(tx *gorm.DB, target string, code *models.OneTimeCode) *gorm.DB {
	return tx.Model(code).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "attempts"}}}).
		Where("target = ?", target).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1))
}

// Delete removes the code of a target
func (r *CodeRepository) Delete(ctx context.Context, target string) error {
	err := r.db.WithContext(ctx).Where("target = ?", target).Delete(&models.OneTimeCode{}).Error
	if err != nil {
		return errors.Wrap(err, "failed to delete one-time code")
	}
	return nil
}
