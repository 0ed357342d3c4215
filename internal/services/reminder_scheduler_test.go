package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/notify"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var eat = time.FixedZone("EAT", 3*60*60)

type schedulerFixture struct {
	customers     *fakeCustomers
	deliveries    *fakeDeliveries
	payments      *fakePayments
	claims        *fakeClaims
	notifications *fakeNotifications
	notifier      *MockNotifier
	now           time.Time
}

func newSchedulerFixture(now time.Time) *schedulerFixture {
	return &schedulerFixture{
		customers:     &fakeCustomers{},
		deliveries:    &fakeDeliveries{},
		payments:      &fakePayments{},
		claims:        newFakeClaims(),
		notifications: &fakeNotifications{},
		notifier:      new(MockNotifier),
		now:           now,
	}
}

func (f *schedulerFixture) runtime() Runtime {
	return Runtime{
		Location: eat,
		Now:      func() time.Time { return f.now },
	}
}

func (f *schedulerFixture) scheduler(instanceID string, indexer NotificationIndexer) *ReminderScheduler {
	rt := f.runtime()
	payments := NewPaymentService(f.customers, f.payments, rt)
	overview := NewOverviewService(f.customers, f.deliveries, f.payments, rt)
	return NewReminderScheduler(f.customers, f.claims, f.notifications, indexer, payments, overview, f.notifier, instanceID, rt)
}

func remindedCustomer(ownerID uint, name, shift string, lastSent *time.Time, interval int) models.Customer {
	return models.Customer{
		OwnerID:              ownerID,
		FullName:             name,
		Shift:                shift,
		PricePerUnit:         floatPtr(60),
		Active:               true,
		ReminderEnabled:      true,
		ReminderTime:         strPtr("21:00"),
		ReminderIntervalDays: interval,
		LastReminderSent:     lastSent,
	}
}

func TestTickHonoursInterval(t *testing.T) {
	lastSent := time.Date(2024, 1, 10, 21, 0, 0, 0, eat)
	f := newSchedulerFixture(time.Date(2024, 1, 11, 21, 0, 20, 0, eat))
	asha := f.customers.add(remindedCustomer(1, "Asha", "morning", &lastSent, 2))
	f.deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2024, 1, 5), CustomerName: "asha", Quantity: 2})

	s := f.scheduler("instance-a", nil)

	results, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	f.now = time.Date(2024, 1, 12, 21, 0, 5, 0, eat)
	subject := notify.UnpaidSubject("morning", f.now)
	f.notifier.On("Send", mock.Anything, subject, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "Asha") && strings.Contains(body, "120.00")
	})).Return(nil).Once()

	results, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, DispatchSent, results[0].Outcome)
	require.Equal(t, subject, results[0].Subject)
	require.Len(t, results[0].Unpaid, 1)
	require.Equal(t, 2.0, results[0].Unpaid[0].Quantity)

	updated := f.customers.get(asha.ID)
	require.NotNil(t, updated.LastReminderSent)
	require.True(t, updated.LastReminderSent.Equal(f.now))

	logged := f.notifications.all()
	require.Len(t, logged, 1)
	require.Equal(t, models.NotificationSent, logged[0].Status)
	require.Equal(t, TriggerScheduled, logged[0].Trigger)
	f.notifier.AssertExpectations(t)
}

func TestTickDispatchesEachSlotOnce(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	f.customers.add(remindedCustomer(1, "Ben", "morning", nil, 1))
	f.customers.add(remindedCustomer(1, "Chen", "morning", nil, 1))
	f.customers.add(remindedCustomer(1, "Dina", "evening", nil, 1))
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	results, err := f.scheduler("instance-a", nil).Tick(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 2)
	f.notifier.AssertNumberOfCalls(t, "Send", 2)
	require.Len(t, f.claims.claims, 2)
	require.Len(t, results[0].Unpaid, 3)
}

func TestTickSkipsOutsideReminderMinute(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 1, 0, 0, eat))
	f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))

	results, err := f.scheduler("instance-a", nil).Tick(context.Background())

	require.NoError(t, err)
	require.Empty(t, results)
	require.Empty(t, f.claims.claims)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestTickSkipsClaimedSlot(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 30, 0, eat))
	f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	s := f.scheduler("instance-a", nil)

	won, err := f.claims.Claim(context.Background(), 1, "morning", f.now.Truncate(time.Minute), "instance-b")
	require.NoError(t, err)
	require.True(t, won)

	results, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)

	_, err = s.SendNow(context.Background(), 1, "morning")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestConcurrentTicksSendOnce(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	schedulers := []*ReminderScheduler{
		f.scheduler("instance-a", nil),
		f.scheduler("instance-b", nil),
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		start   = make(chan struct{})
		results []DispatchResult
		errs    []error
	)
	for _, s := range schedulers {
		wg.Add(1)
		go func(s *ReminderScheduler) {
			defer wg.Done()
			<-start
			out, err := s.Tick(context.Background())
			mu.Lock()
			results = append(results, out...)
			if err != nil {
				errs = append(errs, err)
			}
			mu.Unlock()
		}(s)
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, results, 1)
	f.notifier.AssertNumberOfCalls(t, "Send", 1)
	require.Len(t, f.notifications.all(), 1)
}

func TestTickIsolatesNotifierFailure(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	failing := f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	healthy := f.customers.add(remindedCustomer(2, "Ben", "evening", nil, 1))
	f.notifier.On("Send", mock.Anything, notify.UnpaidSubject("morning", f.now), mock.Anything).Return(errors.New("smtp down"))
	f.notifier.On("Send", mock.Anything, notify.UnpaidSubject("evening", f.now), mock.Anything).Return(nil)

	results, err := f.scheduler("instance-a", nil).Tick(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, DispatchFailed, results[0].Outcome)
	require.Equal(t, models.NotificationFailed, results[0].Notification.Status)
	require.Equal(t, "smtp down", results[0].Notification.Error)
	require.Equal(t, DispatchSent, results[1].Outcome)

	require.Nil(t, f.customers.get(failing.ID).LastReminderSent)
	require.NotNil(t, f.customers.get(healthy.ID).LastReminderSent)
	require.Len(t, f.notifications.all(), 2)
	f.notifier.AssertExpectations(t)
}

func TestTickAllPaidSendsNothing(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	asha := f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	require.NoError(t, f.payments.SetPaid(context.Background(), 1, "morning", day(2024, 1, 12), "asha", true))

	results, err := f.scheduler("instance-a", nil).Tick(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, DispatchAllPaid, results[0].Outcome)
	require.Empty(t, results[0].Unpaid)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	require.NotNil(t, f.customers.get(asha.ID).LastReminderSent)
	require.Empty(t, f.notifications.all())
}

func TestTickClaimErrorIsIsolated(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	f.claims.err = errors.New("connection reset")

	results, err := f.scheduler("instance-a", nil).Tick(context.Background())

	require.NoError(t, err)
	require.Empty(t, results)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestTickFailsWhenConfigurationUnavailable(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	f.customers.err = errors.New("connection refused")

	_, err := f.scheduler("instance-a", nil).Tick(context.Background())

	require.Error(t, err)
}

func TestTickIndexesNotification(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	f.customers.add(remindedCustomer(1, "Asha", "morning", nil, 1))
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	indexer := new(MockIndexer)
	indexer.On("IndexNotification", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.ID != 0 && n.OwnerID == 1 && n.Status == models.NotificationSent
	})).Return(errors.New("cluster unavailable"))

	results, err := f.scheduler("instance-a", indexer).Tick(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, DispatchSent, results[0].Outcome)
	indexer.AssertExpectations(t)
}

func TestSendNowBypassesSchedule(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 10, 17, 0, 0, eat))
	asha := f.customers.add(models.Customer{OwnerID: 1, FullName: "Asha", Shift: "morning", PricePerUnit: floatPtr(60), Active: true})
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	s := f.scheduler("instance-a", nil)

	result, err := s.SendNow(context.Background(), 1, "morning")
	require.NoError(t, err)
	require.Equal(t, DispatchSent, result.Outcome)
	require.Equal(t, TriggerManual, result.Notification.Trigger)
	require.NotNil(t, f.customers.get(asha.ID).LastReminderSent)

	_, err = s.SendNow(context.Background(), 1, "morning")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	f.notifier.AssertNumberOfCalls(t, "Send", 1)

	_, err = s.SendNow(context.Background(), 1, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUnpaidReportUsesMonthToDateTotals(t *testing.T) {
	f := newSchedulerFixture(time.Date(2024, 1, 12, 21, 0, 0, 0, eat))
	f.customers.add(models.Customer{OwnerID: 1, FullName: "Asha", Shift: "morning", PricePerUnit: floatPtr(60), Active: true})
	f.customers.add(models.Customer{OwnerID: 1, FullName: "Ben", Nickname: strPtr("Benny"), Shift: "morning", PricePerUnit: floatPtr(50), Active: true})
	f.deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2024, 1, 3), CustomerName: "Benny", Quantity: 1.5})
	f.deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2024, 1, 4), CustomerName: "ben", Quantity: 1})
	f.deliveries.add(models.DeliveryRecord{OwnerID: 1, Shift: "morning", Date: day(2023, 12, 31), CustomerName: "Ben", Quantity: 9})
	require.NoError(t, f.payments.SetPaid(context.Background(), 1, "morning", day(2024, 1, 12), "Asha", true))
	require.NoError(t, f.payments.SetPaid(context.Background(), 1, "morning", day(2024, 1, 12), "Former", false))

	rows, err := f.scheduler("instance-a", nil).UnpaidReport(context.Background(), 1, "morning")

	require.NoError(t, err)
	require.Equal(t, []notify.ReportRow{{CustomerName: "Ben", Quantity: 2.5, Rate: 50, Amount: 125}}, rows)
}

func TestConfigureClearsLastSent(t *testing.T) {
	lastSent := time.Date(2024, 1, 10, 21, 0, 0, 0, eat)
	f := newSchedulerFixture(time.Date(2024, 1, 12, 9, 0, 0, 0, eat))
	asha := f.customers.add(remindedCustomer(1, "Asha", "morning", &lastSent, 3))
	s := f.scheduler("instance-a", nil)

	err := s.Configure(context.Background(), ReminderSettingsInput{OwnerID: 1, Shift: "morning", Enabled: true})
	require.NoError(t, err)

	updated := f.customers.get(asha.ID)
	require.Nil(t, updated.LastReminderSent)
	require.Equal(t, DefaultReminderTime, *updated.ReminderTime)
	require.Equal(t, 1, updated.ReminderIntervalDays)
	require.Equal(t, "morning", *updated.ReminderShift)

	err = s.Configure(context.Background(), ReminderSettingsInput{OwnerID: 1, Shift: "evening", Time: "06:30", Enabled: true})
	require.ErrorIs(t, err, ErrNotFound)

	err = s.Configure(context.Background(), ReminderSettingsInput{OwnerID: 1, Shift: "morning", Time: "25:00", Enabled: true})
	require.ErrorIs(t, err, ErrInvalidInput)
}
