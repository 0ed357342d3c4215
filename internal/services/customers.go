package services

import (
	"context"
	"strings"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CreateCustomerInput is a new customer profile
type CreateCustomerInput struct {
	OwnerID      uint     `json:"ownerId" validate:"required"`
	FullName     string   `json:"fullName" validate:"required"`
	Nickname     *string  `json:"nickname"`
	Shift        string   `json:"shift" validate:"required"`
	PricePerUnit *float64 `json:"pricePerUnit" validate:"omitempty,gte=0"`
}

// UpdateCustomerInput holds the profile fields to change; nil leaves a field
// as is and an empty nickname clears it
type UpdateCustomerInput struct {
	FullName     *string  `json:"fullName" validate:"omitempty,min=1"`
	Nickname     *string  `json:"nickname"`
	Shift        *string  `json:"shift" validate:"omitempty,min=1"`
	PricePerUnit *float64 `json:"pricePerUnit" validate:"omitempty,gte=0"`
	Active       *bool    `json:"active"`
}

// CustomerService manages the customer directory
type CustomerService struct {
	customers CustomerStore
}

// NewCustomerService creates a new customer service
func NewCustomerService(customers CustomerStore) *CustomerService {
	return &CustomerService{customers: customers}
}

// List returns an owner's active customers, optionally for one shift
func (s *CustomerService) List(ctx context.Context, ownerID uint, shift string) ([]models.Customer, error) {
	if ownerID == 0 {
		return nil, invalidf("owner id is required")
	}
	customers, err := s.customers.ListActive(ctx, ownerID, strings.TrimSpace(shift))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list customers")
	}
	return customers, nil
}

// Create adds an active customer
func (s *CustomerService) Create(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Shift = strings.TrimSpace(input.Shift)
	if err := validate.Struct(input); err != nil {
		return nil, invalidf("%s", err.Error())
	}

	customer := &models.Customer{
		OwnerID:              input.OwnerID,
		FullName:             input.FullName,
		Nickname:             cleanNickname(input.Nickname),
		Shift:                input.Shift,
		PricePerUnit:         input.PricePerUnit,
		Active:               true,
		ReminderIntervalDays: 1,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, errors.Wrap(err, "failed to create customer")
	}

	log.Info().
		Uint("owner_id", customer.OwnerID).
		Uint("customer_id", customer.ID).
		Str("shift", customer.Shift).
		Msg("Customer created")
	return customer, nil
}

// Update changes an owner's customer profile
func (s *CustomerService) Update(ctx context.Context, ownerID, id uint, input UpdateCustomerInput) (*models.Customer, error) {
	if ownerID == 0 || id == 0 {
		return nil, invalidf("owner id and customer id are required")
	}
	if err := validate.Struct(input); err != nil {
		return nil, invalidf("%s", err.Error())
	}

	customer, err := s.customers.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, storeError(err, "customer not found")
	}

	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, invalidf("full name cannot be empty")
		}
		customer.FullName = name
	}
	if input.Nickname != nil {
		customer.Nickname = cleanNickname(input.Nickname)
	}
	if input.Shift != nil {
		shift := strings.TrimSpace(*input.Shift)
		if shift == "" {
			return nil, invalidf("shift cannot be empty")
		}
		if shift != customer.Shift {
			if err := s.moveReminder(ctx, customer, shift); err != nil {
				return nil, err
			}
		}
	}
	if input.PricePerUnit != nil {
		customer.PricePerUnit = input.PricePerUnit
	}
	if input.Active != nil {
		customer.Active = *input.Active
	}

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, storeError(err, "failed to update customer")
	}
	return customer, nil
}

// moveReminder puts a customer into another shift. The customer leaves the
// old shift's reminder slot and joins the new shift's slot, or a disabled one
// when nobody else is in that shift yet.
func (s *CustomerService) moveReminder(ctx context.Context, customer *models.Customer, shift string) error {
	peers, err := s.customers.ListActive(ctx, customer.OwnerID, shift)
	if err != nil {
		return errors.Wrap(err, "failed to load shift customers")
	}

	customer.Shift = shift
	customer.ResetReminder()
	for _, peer := range peers {
		if peer.ID != customer.ID && peer.ReminderSlotShift() == shift {
			customer.CopyReminder(peer)
			break
		}
	}

	log.Info().
		Uint("owner_id", customer.OwnerID).
		Uint("customer_id", customer.ID).
		Str("shift", shift).
		Bool("reminder_enabled", customer.ReminderEnabled).
		Msg("Customer moved to another shift")
	return nil
}

// Deactivate soft-deletes a customer
func (s *CustomerService) Deactivate(ctx context.Context, ownerID, id uint) error {
	if ownerID == 0 || id == 0 {
		return invalidf("owner id and customer id are required")
	}
	if err := s.customers.Deactivate(ctx, ownerID, id); err != nil {
		return storeError(err, "customer not found")
	}
	log.Info().Uint("owner_id", ownerID).Uint("customer_id", id).Msg("Customer deactivated")
	return nil
}

func cleanNickname(nickname *string) *string {
	if nickname == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*nickname)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
