package services

import (
	"context"
	"strings"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
)

// PaymentService manages the daily payment ledger
type PaymentService struct {
	customers CustomerStore
	payments  PaymentStore
	rt        Runtime
}

// NewPaymentService creates a new payment service
func NewPaymentService(customers CustomerStore, payments PaymentStore, rt Runtime) *PaymentService {
	return &PaymentService{
		customers: customers,
		payments:  payments,
		rt:        rt,
	}
}

// TodayPayments returns today's ledger for a shift, first seeding an unpaid
// row for every active customer that has none
func (s *PaymentService) TodayPayments(ctx context.Context, ownerID uint, shift string) ([]models.PaymentStatus, error) {
	if ownerID == 0 {
		return nil, invalidf("owner id is required")
	}
	if strings.TrimSpace(shift) == "" {
		return nil, invalidf("shift is required")
	}

	today := s.rt.today()

	customers, err := s.customers.ListActive(ctx, ownerID, shift)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load customers")
	}

	names := make([]string, 0, len(customers))
	for _, c := range customers {
		if name := ledgerName(c); name != "" {
			names = append(names, name)
		}
	}

	if err := s.payments.SeedUnpaid(ctx, ownerID, shift, today, names); err != nil {
		return nil, errors.Wrap(err, "failed to seed today's payments")
	}

	payments, err := s.payments.ListByDate(ctx, ownerID, shift, today)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load today's payments")
	}
	return payments, nil
}

// SetPaid records today's paid flag for a customer
func (s *PaymentService) SetPaid(ctx context.Context, ownerID uint, shift, customerName string, paid bool) error {
	customerName = strings.TrimSpace(customerName)
	switch {
	case ownerID == 0:
		return invalidf("owner id is required")
	case strings.TrimSpace(shift) == "":
		return invalidf("shift is required")
	case customerName == "":
		return invalidf("customer name is required")
	}

	if err := s.payments.SetPaid(ctx, ownerID, shift, s.rt.today(), customerName, paid); err != nil {
		return errors.Wrap(err, "failed to save payment")
	}
	return nil
}

// ledgerName is the name a customer's payment rows are kept under
func ledgerName(c models.Customer) string {
	if name := strings.TrimSpace(c.FullName); name != "" {
		return name
	}
	if c.Nickname != nil {
		return strings.TrimSpace(*c.Nickname)
	}
	return ""
}
