package services

import (
	"context"
	"strings"
	"time"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Cell is one customer's delivered quantity on one day
type Cell struct {
	Quantity float64 `json:"quantity"`
}

// Overview is the monthly day-by-customer matrix with its totals.
// Amounts use each customer's current price.
type Overview struct {
	Year                     int                   `json:"year"`
	Month                    int                   `json:"month"`
	DaysInMonth              int                   `json:"daysInMonth"`
	Customers                []models.Customer     `json:"customers"`
	Matrix                   map[int]map[uint]Cell `json:"matrix"`
	TotalQuantityPerCustomer map[uint]float64      `json:"totalQuantityPerCustomer"`
	TotalAmountPerCustomer   map[uint]float64      `json:"totalAmountPerCustomer"`
	TotalPerDay              map[int]float64       `json:"totalPerDay"`
	GrandTotalAmount         float64               `json:"grandTotalAmount"`
	PaymentsToday            map[string]bool       `json:"paymentsToday"`
	// UnmatchedRecords counts records whose customer name matched no active
	// customer and were left out of the matrix.
	UnmatchedRecords int `json:"unmatchedRecords"`
}

// OverviewService builds monthly overviews
type OverviewService struct {
	customers  CustomerStore
	deliveries DeliveryStore
	payments   PaymentStore
	rt         Runtime
}

// NewOverviewService creates a new overview service
func NewOverviewService(customers CustomerStore, deliveries DeliveryStore, payments PaymentStore, rt Runtime) *OverviewService {
	return &OverviewService{
		customers:  customers,
		deliveries: deliveries,
		payments:   payments,
		rt:         rt,
	}
}

// Overview builds the matrix and totals for an owner's shift in a month.
// It never writes.
func (s *OverviewService) Overview(ctx context.Context, ownerID uint, shift string, year, month int) (*Overview, error) {
	if err := validateMonthQuery(ownerID, shift, year, month); err != nil {
		return nil, err
	}

	started := time.Now()
	tracer := s.rt.tracer()
	txn := tracer.StartTransaction("monthly-overview")
	defer tracer.EndTransaction(txn)
	tracer.AddAttribute(txn, "owner_id", ownerID)
	tracer.AddAttribute(txn, "shift", shift)

	first, last := MonthRange(year, month)

	span := tracer.StartSpan("load-customers", txn)
	customers, err := s.customers.ListActive(ctx, ownerID, shift)
	span.End()
	if err != nil {
		tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to load customers")
	}

	span = tracer.StartSpan("load-deliveries", txn)
	records, err := s.deliveries.ListRange(ctx, ownerID, shift, first, last)
	span.End()
	if err != nil {
		tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to load delivery records")
	}

	span = tracer.StartSpan("load-payments-today", txn)
	payments, err := s.payments.ListByDate(ctx, ownerID, shift, s.rt.today())
	span.End()
	if err != nil {
		tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to load today's payments")
	}

	overview := BuildOverview(year, month, customers, records, payments)
	s.rt.Metrics.RecordOverview(time.Since(started))

	if overview.UnmatchedRecords > 0 {
		log.Debug().
			Uint("owner_id", ownerID).
			Str("shift", shift).
			Int("unmatched", overview.UnmatchedRecords).
			Msg("Delivery records without a matching customer were excluded")
	}

	return overview, nil
}

// BuildOverview folds records into a dense day-by-customer matrix. Inactive
// customers and records outside the month are ignored.
func BuildOverview(year, month int, customers []models.Customer, records []models.DeliveryRecord, paymentsToday []models.PaymentStatus) *Overview {
	days := DaysIn(year, month)

	active := make([]models.Customer, 0, len(customers))
	for _, c := range customers {
		if c.Active {
			active = append(active, c)
		}
	}

	ov := &Overview{
		Year:                     year,
		Month:                    month,
		DaysInMonth:              days,
		Customers:                active,
		Matrix:                   make(map[int]map[uint]Cell, days),
		TotalQuantityPerCustomer: make(map[uint]float64, len(active)),
		TotalAmountPerCustomer:   make(map[uint]float64, len(active)),
		TotalPerDay:              make(map[int]float64, days),
		PaymentsToday:            make(map[string]bool, len(paymentsToday)),
	}

	for day := 1; day <= days; day++ {
		row := make(map[uint]Cell, len(active))
		for _, c := range active {
			row[c.ID] = Cell{}
		}
		ov.Matrix[day] = row
	}

	index := NewNameIndex(active)
	for _, rec := range records {
		if rec.Date.Year() != year || int(rec.Date.Month()) != month {
			continue
		}
		customer, ok := index.Lookup(rec.CustomerName)
		if !ok {
			ov.UnmatchedRecords++
			continue
		}
		cell := ov.Matrix[rec.Date.Day()][customer.ID]
		cell.Quantity += rec.Quantity
		ov.Matrix[rec.Date.Day()][customer.ID] = cell
	}

	for day := 1; day <= days; day++ {
		for _, c := range active {
			quantity := ov.Matrix[day][c.ID].Quantity
			amount := quantity * c.Price()

			ov.TotalQuantityPerCustomer[c.ID] += quantity
			ov.TotalAmountPerCustomer[c.ID] += amount
			ov.TotalPerDay[day] += amount
			ov.GrandTotalAmount += amount
		}
	}

	for _, p := range paymentsToday {
		ov.PaymentsToday[models.NormalizeName(p.CustomerName)] = p.Paid
	}

	return ov
}

// NameIndex resolves free-text record labels to customers by full name or
// nickname, ignoring case. The earliest customer in list order wins.
type NameIndex struct {
	byName map[string]models.Customer
}

// NewNameIndex indexes customers in list order
func NewNameIndex(customers []models.Customer) NameIndex {
	idx := NameIndex{byName: make(map[string]models.Customer, 2*len(customers))}
	for _, c := range customers {
		idx.add(c.FullName, c)
		if c.Nickname != nil {
			idx.add(*c.Nickname, c)
		}
	}
	return idx
}

func (idx NameIndex) add(name string, c models.Customer) {
	key := models.NormalizeName(name)
	if key == "" {
		return
	}
	if _, taken := idx.byName[key]; !taken {
		idx.byName[key] = c
	}
}

// Lookup returns the customer a label refers to
func (idx NameIndex) Lookup(label string) (models.Customer, bool) {
	c, ok := idx.byName[models.NormalizeName(label)]
	return c, ok
}

// DaysIn returns the number of days of a month
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthRange returns the first and last calendar day of a month
func MonthRange(year, month int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.Month(month), DaysIn(year, month), 0, 0, 0, 0, time.UTC)
	return first, last
}

func validateMonthQuery(ownerID uint, shift string, year, month int) error {
	switch {
	case ownerID == 0:
		return invalidf("owner id is required")
	case strings.TrimSpace(shift) == "":
		return invalidf("shift is required")
	case month < 1 || month > 12:
		return invalidf("month %d is out of range", month)
	case year < 1 || year > 9999:
		return invalidf("year %d is out of range", year)
	}
	return nil
}
