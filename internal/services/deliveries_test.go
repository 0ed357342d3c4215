package services

import (
	"context"
	"testing"
	"time"

	"example.com/backstage/services/dairy/internal/models"

	"github.com/stretchr/testify/require"
)

func newDeliveryFixture(now time.Time) (*DeliveryService, *fakeCustomers, *fakeDeliveries) {
	customers := &fakeCustomers{}
	deliveries := &fakeDeliveries{}
	return NewDeliveryService(customers, deliveries, fixedRuntime(now)), customers, deliveries
}

func TestSaveDeliverySnapshotsCurrentPrice(t *testing.T) {
	svc, customers, deliveries := newDeliveryFixture(time.Date(2024, 1, 12, 7, 0, 0, 0, eat))
	customers.add(models.Customer{OwnerID: 1, FullName: "Asha Patel", Nickname: strPtr("Ash"), Shift: "morning", PricePerUnit: floatPtr(60), Active: true})

	record, deleted, err := svc.Save(context.Background(), SaveDeliveryInput{
		OwnerID:      1,
		Shift:        "morning",
		CustomerName: " ash ",
		Quantity:     1.5,
	})

	require.NoError(t, err)
	require.False(t, deleted)
	require.Equal(t, day(2024, 1, 12), record.Date)
	require.Equal(t, "ash", record.CustomerName)
	require.Equal(t, 60.0, record.Rate)
	require.Equal(t, 90.0, record.Amount)
	require.Len(t, deliveries.rows, 1)
}

func TestSaveDeliveryUpsertsNaturalKey(t *testing.T) {
	svc, _, deliveries := newDeliveryFixture(time.Date(2024, 1, 12, 7, 0, 0, 0, eat))
	input := SaveDeliveryInput{OwnerID: 1, Shift: "morning", Date: "2024-01-10", CustomerName: "Stranger", Quantity: 2}

	record, _, err := svc.Save(context.Background(), input)
	require.NoError(t, err)
	// unknown customers are stored without a price
	require.Equal(t, 0.0, record.Rate)

	input.Quantity = 3
	input.Rate = floatPtr(45)
	record, _, err = svc.Save(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, deliveries.rows, 1)
	require.Equal(t, 3.0, deliveries.rows[0].Quantity)
	require.Equal(t, 135.0, deliveries.rows[0].Amount)
	require.Equal(t, deliveries.rows[0].ID, record.ID)
}

func TestSaveDeliveryZeroQuantityDeletes(t *testing.T) {
	svc, _, deliveries := newDeliveryFixture(time.Date(2024, 1, 12, 7, 0, 0, 0, eat))
	deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2024, 1, 10), CustomerName: "Asha", Quantity: 2})

	_, deleted, err := svc.Save(context.Background(), SaveDeliveryInput{OwnerID: 1, Shift: "morning", Date: "2024-01-10", CustomerName: "Asha"})
	require.NoError(t, err)
	require.True(t, deleted)
	require.Empty(t, deliveries.rows)

	// deleting an absent record is not an error
	_, deleted, err = svc.Save(context.Background(), SaveDeliveryInput{OwnerID: 1, Shift: "morning", Date: "2024-01-10", CustomerName: "Asha"})
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestSaveDeliveryValidation(t *testing.T) {
	svc, _, _ := newDeliveryFixture(time.Now())

	tests := []struct {
		name  string
		input SaveDeliveryInput
	}{
		{name: "missing owner", input: SaveDeliveryInput{Shift: "morning", CustomerName: "Asha", Quantity: 1}},
		{name: "missing shift", input: SaveDeliveryInput{OwnerID: 1, Shift: "  ", CustomerName: "Asha", Quantity: 1}},
		{name: "missing name", input: SaveDeliveryInput{OwnerID: 1, Shift: "morning", Quantity: 1}},
		{name: "negative quantity", input: SaveDeliveryInput{OwnerID: 1, Shift: "morning", CustomerName: "Asha", Quantity: -1}},
		{name: "bad date", input: SaveDeliveryInput{OwnerID: 1, Shift: "morning", CustomerName: "Asha", Quantity: 1, Date: "12/01/2024"}},
		{name: "negative rate", input: SaveDeliveryInput{OwnerID: 1, Shift: "morning", CustomerName: "Asha", Quantity: 1, Rate: floatPtr(-2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Save(context.Background(), tt.input)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestListDeliveries(t *testing.T) {
	svc, _, deliveries := newDeliveryFixture(time.Now())
	for _, d := range []int{3, 1, 2} {
		deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2024, 1, d), CustomerName: "Asha", Quantity: 1})
	}
	deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "evening", Date: day(2024, 1, 2), CustomerName: "Asha", Quantity: 1})

	ranged, err := svc.List(context.Background(), 1, "morning", "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	require.Equal(t, day(2024, 1, 1), ranged[0].Date)

	all, err := svc.List(context.Background(), 1, "morning", "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, day(2024, 1, 3), all[0].Date)

	_, err = svc.List(context.Background(), 1, "morning", "2024-01-05", "2024-01-01")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.List(context.Background(), 1, "", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteDelivery(t *testing.T) {
	svc, _, deliveries := newDeliveryFixture(time.Now())
	record := deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2024, 1, 1), CustomerName: "Asha", Quantity: 1})

	require.ErrorIs(t, svc.Delete(context.Background(), 2, record.ID), ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), 1, record.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), 1, record.ID), ErrNotFound)

	count, err := svc.Count(context.Background(), 1, "morning")
	require.NoError(t, err)
	require.Zero(t, count)
}
