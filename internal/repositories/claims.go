package repositories

import (
	"context"
	"time"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimRepository owns the reminder claim table
type ClaimRepository struct {
	db *gorm.DB
}

// NewClaimRepository creates a new claim repository. Claims always go to the
// write database.
func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Claim takes the (owner, shift) reminder slot for the given minute. It is a
// single conditional statement:
//
//	INSERT ... ON CONFLICT (owner_id, shift)
//	DO UPDATE SET claimed_at = EXCLUDED.claimed_at, claimed_by = EXCLUDED.claimed_by
//	WHERE reminder_claims.claimed_at < EXCLUDED.claimed_at
//
// It reports true when exactly one row was written, meaning the caller owns
// the dispatch. Zero rows means the slot was already claimed at this minute
// or later.
func (r *ClaimRepository) Claim(ctx context.Context, ownerID uint, shift string, slot time.Time, claimant string) (bool, error) {
	claim := &models.ReminderClaim{
		OwnerID:   ownerID,
		Shift:     shift,
		ClaimedAt: slot,
		ClaimedBy: claimant,
	}

	result := claimSlot(r.db.WithContext(ctx), claim)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to claim reminder slot")
	}

	return result.RowsAffected == 1, nil
}

func claimSlot(tx *gorm.DB, claim *models.ReminderClaim) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "shift"}},
		DoUpdates: clause.AssignmentColumns([]string{"claimed_at", "claimed_by"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "reminder_claims.claimed_at < EXCLUDED.claimed_at"},
		}},
	}).Create(claim)
}
