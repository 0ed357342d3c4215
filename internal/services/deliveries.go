package services

import (
	"context"
	"strings"
	"time"

	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/repositories"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DateLayout is the wire format of calendar days
const DateLayout = "2006-01-02"

// SaveDeliveryInput is one delivery entry
type SaveDeliveryInput struct {
	OwnerID      uint     `json:"ownerId" validate:"required"`
	Shift        string   `json:"shift" validate:"required"`
	Date         string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	CustomerName string   `json:"customerName" validate:"required"`
	Quantity     float64  `json:"quantity" validate:"gte=0"`
	Rate         *float64 `json:"rate" validate:"omitempty,gte=0"`
}

// DeliveryService manages delivery records
type DeliveryService struct {
	customers  CustomerStore
	deliveries DeliveryStore
	rt         Runtime
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(customers CustomerStore, deliveries DeliveryStore, rt Runtime) *DeliveryService {
	return &DeliveryService{
		customers:  customers,
		deliveries: deliveries,
		rt:         rt,
	}
}

// Save upserts a delivery by its natural key. A zero quantity deletes the
// record instead and reports deleted. Without a rate the customer's current
// price is snapshotted.
func (s *DeliveryService) Save(ctx context.Context, input SaveDeliveryInput) (*models.DeliveryRecord, bool, error) {
	input.Shift = strings.TrimSpace(input.Shift)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.Date = strings.TrimSpace(input.Date)
	if err := validate.Struct(input); err != nil {
		return nil, false, invalidf("%s", err.Error())
	}

	date := s.rt.today()
	if input.Date != "" {
		parsed, err := ParseDate(input.Date)
		if err != nil {
			return nil, false, err
		}
		date = parsed
	}

	record := &models.DeliveryRecord{
		OwnerID:      input.OwnerID,
		Shift:        input.Shift,
		Date:         date,
		CustomerName: input.CustomerName,
		Quantity:     input.Quantity,
	}

	if input.Quantity == 0 {
		if err := s.deliveries.DeleteByKey(ctx, input.OwnerID, input.Shift, date, input.CustomerName); err != nil {
			return nil, false, errors.Wrap(err, "failed to delete zero-quantity delivery")
		}
		return record, true, nil
	}

	if input.Rate != nil {
		record.Rate = *input.Rate
	} else {
		rate, err := s.currentRate(ctx, input.OwnerID, input.Shift, input.CustomerName)
		if err != nil {
			return nil, false, err
		}
		record.Rate = rate
	}
	record.Amount = record.Quantity * record.Rate

	if err := s.deliveries.Upsert(ctx, record); err != nil {
		return nil, false, errors.Wrap(err, "failed to save delivery")
	}

	log.Debug().
		Uint("owner_id", record.OwnerID).
		Str("shift", record.Shift).
		Str("date", record.Date.Format(DateLayout)).
		Str("customer", record.CustomerName).
		Float64("quantity", record.Quantity).
		Msg("Delivery saved")
	return record, false, nil
}

func (s *DeliveryService) currentRate(ctx context.Context, ownerID uint, shift, name string) (float64, error) {
	customer, err := s.customers.FindByName(ctx, ownerID, shift, name)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to look up customer price")
	}
	return customer.Price(), nil
}

// List returns an owner+shift's deliveries. With both bounds the range is
// returned oldest first, otherwise every record newest first.
func (s *DeliveryService) List(ctx context.Context, ownerID uint, shift, start, end string) ([]models.DeliveryRecord, error) {
	if ownerID == 0 {
		return nil, invalidf("owner id is required")
	}
	if strings.TrimSpace(shift) == "" {
		return nil, invalidf("shift is required")
	}

	if start == "" || end == "" {
		records, err := s.deliveries.ListAll(ctx, ownerID, shift)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list deliveries")
		}
		return records, nil
	}

	from, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, invalidf("end date %s is before start date %s", end, start)
	}

	records, err := s.deliveries.ListRange(ctx, ownerID, shift, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list deliveries in range")
	}
	return records, nil
}

// Delete removes a delivery by id
func (s *DeliveryService) Delete(ctx context.Context, ownerID, id uint) error {
	if ownerID == 0 || id == 0 {
		return invalidf("owner id and delivery id are required")
	}
	if err := s.deliveries.DeleteByID(ctx, ownerID, id); err != nil {
		return storeError(err, "entry not found")
	}
	return nil
}

// Count returns the number of deliveries of an owner+shift
func (s *DeliveryService) Count(ctx context.Context, ownerID uint, shift string) (int64, error) {
	if ownerID == 0 {
		return 0, invalidf("owner id is required")
	}
	count, err := s.deliveries.Count(ctx, ownerID, shift)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deliveries")
	}
	return count, nil
}

// ParseDate parses a "YYYY-MM-DD" calendar day
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalidf("invalid date %q", value)
	}
	return t, nil
}
