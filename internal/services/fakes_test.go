package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/repositories"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

// MockNotifier records outgoing emails
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	args := m.Called(ctx, subject, htmlBody)
	return args.Error(0)
}

func (m *MockNotifier) SendTo(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// MockIndexer records indexed notifications
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexNotification(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

// fakeCustomers is an in-memory CustomerStore
type fakeCustomers struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Customer
	err    error
}

func (f *fakeCustomers) add(c models.Customer) models.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	if c.ReminderIntervalDays == 0 {
		c.ReminderIntervalDays = 1
	}
	f.rows = append(f.rows, c)
	return c
}

func (f *fakeCustomers) get(id uint) models.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			return c
		}
	}
	return models.Customer{}
}

func (f *fakeCustomers) ListActive(ctx context.Context, ownerID uint, shift string) ([]models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Customer
	for _, c := range f.rows {
		if c.OwnerID == ownerID && c.Active && (shift == "" || c.Shift == shift) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCustomers) ListReminderEnabled(ctx context.Context) ([]models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Customer
	for _, c := range f.rows {
		if c.Active && c.ReminderEnabled && c.ReminderTime != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCustomers) GetByID(ctx context.Context, ownerID, id uint) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id && c.OwnerID == ownerID {
			c := c
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCustomers) FindByName(ctx context.Context, ownerID uint, shift, name string) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.OwnerID == ownerID && c.Shift == shift && c.Active && c.Matches(name) {
			c := c
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCustomers) Create(ctx context.Context, customer *models.Customer) error {
	created := f.add(*customer)
	customer.ID = created.ID
	return nil
}

func (f *fakeCustomers) Update(ctx context.Context, customer *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.rows {
		if c.ID == customer.ID && c.OwnerID == customer.OwnerID {
			f.rows[i].FullName = customer.FullName
			f.rows[i].Nickname = customer.Nickname
			f.rows[i].Shift = customer.Shift
			f.rows[i].PricePerUnit = customer.PricePerUnit
			f.rows[i].Active = customer.Active
			f.rows[i].CopyReminder(*customer)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCustomers) Deactivate(ctx context.Context, ownerID, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.rows {
		if c.ID == id && c.OwnerID == ownerID {
			f.rows[i].Active = false
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCustomers) ConfigureReminder(ctx context.Context, ownerID uint, shift string, settings repositories.ReminderSettings) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i, c := range f.rows {
		if c.OwnerID == ownerID && c.Shift != shift && c.ReminderShift != nil && *c.ReminderShift == shift {
			f.rows[i].ResetReminder()
		}
	}
	for i, c := range f.rows {
		if c.OwnerID != ownerID || c.Shift != shift {
			continue
		}
		at, slotShift := settings.Time, shift
		f.rows[i].ReminderEnabled = settings.Enabled
		f.rows[i].ReminderTime = &at
		f.rows[i].ReminderShift = &slotShift
		f.rows[i].ReminderIntervalDays = settings.IntervalDays
		if settings.Enabled {
			f.rows[i].LastReminderSent = nil
		}
		n++
	}
	return n, nil
}

func (f *fakeCustomers) UpdateLastReminderSent(ctx context.Context, ownerID uint, shift string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.rows {
		if c.OwnerID == ownerID && c.ReminderSlotShift() == shift {
			sent := at
			f.rows[i].LastReminderSent = &sent
		}
	}
	return nil
}

// fakeDeliveries is an in-memory DeliveryStore keyed by natural key
type fakeDeliveries struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.DeliveryRecord
}

func (f *fakeDeliveries) add(r models.DeliveryRecord) models.DeliveryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.rows = append(f.rows, r)
	return r
}

func sameKey(r models.DeliveryRecord, ownerID uint, shift string, date time.Time, name string) bool {
	return r.OwnerID == ownerID && r.Shift == shift && r.Date.Equal(date) && r.CustomerName == name
}

func (f *fakeDeliveries) ListRange(ctx context.Context, ownerID uint, shift string, start, end time.Time) ([]models.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DeliveryRecord
	for _, r := range f.rows {
		if r.OwnerID == ownerID && r.Shift == shift && !r.Date.Before(start) && !r.Date.After(end) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeDeliveries) ListAll(ctx context.Context, ownerID uint, shift string) ([]models.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DeliveryRecord
	for _, r := range f.rows {
		if r.OwnerID == ownerID && r.Shift == shift {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeDeliveries) Upsert(ctx context.Context, record *models.DeliveryRecord) error {
	f.mu.Lock()
	for i, r := range f.rows {
		if sameKey(r, record.OwnerID, record.Shift, record.Date, record.CustomerName) {
			f.rows[i].Quantity = record.Quantity
			f.rows[i].Rate = record.Rate
			f.rows[i].Amount = record.Amount
			record.ID = r.ID
			f.mu.Unlock()
			return nil
		}
	}
	f.mu.Unlock()
	created := f.add(*record)
	record.ID = created.ID
	return nil
}

func (f *fakeDeliveries) DeleteByKey(ctx context.Context, ownerID uint, shift string, date time.Time, customerName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if sameKey(r, ownerID, shift, date, customerName) {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeDeliveries) DeleteByID(ctx context.Context, ownerID, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.OwnerID == ownerID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return errors.Wrap(repositories.ErrNotFound, "no delivery deleted")
}

func (f *fakeDeliveries) Count(ctx context.Context, ownerID uint, shift string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rows {
		if r.OwnerID == ownerID && (shift == "" || r.Shift == shift) {
			n++
		}
	}
	return n, nil
}

// fakePayments is an in-memory PaymentStore
type fakePayments struct {
	mu    sync.Mutex
	rows  []models.PaymentStatus
	seeds int
}

func (f *fakePayments) ListByDate(ctx context.Context, ownerID uint, shift string, date time.Time) ([]models.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PaymentStatus
	for _, p := range f.rows {
		if p.OwnerID == ownerID && p.Shift == shift && p.Date.Equal(date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayments) find(ownerID uint, shift string, date time.Time, name string) int {
	for i, p := range f.rows {
		if p.OwnerID == ownerID && p.Shift == shift && p.Date.Equal(date) && models.NormalizeName(p.CustomerName) == models.NormalizeName(name) {
			return i
		}
	}
	return -1
}

func (f *fakePayments) SeedUnpaid(ctx context.Context, ownerID uint, shift string, date time.Time, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeds++
	for _, name := range names {
		if f.find(ownerID, shift, date, name) >= 0 {
			continue
		}
		f.rows = append(f.rows, models.PaymentStatus{OwnerID: ownerID, Shift: shift, Date: date, CustomerName: name})
	}
	return nil
}

func (f *fakePayments) SetPaid(ctx context.Context, ownerID uint, shift string, date time.Time, customerName string, paid bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.find(ownerID, shift, date, customerName); i >= 0 {
		f.rows[i].Paid = paid
		return nil
	}
	f.rows = append(f.rows, models.PaymentStatus{OwnerID: ownerID, Shift: shift, Date: date, CustomerName: customerName, Paid: paid})
	return nil
}

// fakeClaims mirrors the conditional upsert: a claim wins only when the slot
// is newer than the stored one
type fakeClaims struct {
	mu     sync.Mutex
	claims map[slotKey]models.ReminderClaim
	err    error
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{claims: make(map[slotKey]models.ReminderClaim)}
}

func (f *fakeClaims) Claim(ctx context.Context, ownerID uint, shift string, slot time.Time, claimant string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	key := slotKey{ownerID: ownerID, shift: shift}
	if existing, ok := f.claims[key]; ok && !existing.ClaimedAt.Before(slot) {
		return false, nil
	}
	f.claims[key] = models.ReminderClaim{OwnerID: ownerID, Shift: shift, ClaimedAt: slot, ClaimedBy: claimant}
	return true, nil
}

// fakeNotifications is an in-memory NotificationStore
type fakeNotifications struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	notification.ID = f.nextID
	f.rows = append(f.rows, *notification)
	return nil
}

func (f *fakeNotifications) List(ctx context.Context, ownerID uint, shift string) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.rows) - 1; i >= 0; i-- {
		n := f.rows[i]
		if n.OwnerID == ownerID && (shift == "" || n.Shift == shift) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.rows...)
}

// fakeUsers is an in-memory UserStore
type fakeUsers struct {
	nextID uint
	rows   map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[string]*models.User)}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	if _, ok := f.rows[user.Email]; ok {
		return errors.Wrap(repositories.ErrDuplicateKey, "failed to create user")
	}
	f.nextID++
	user.ID = f.nextID
	stored := *user
	f.rows[user.Email] = &stored
	return nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.rows[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id uint, hash string) error {
	for _, user := range f.rows {
		if user.ID == id {
			user.PasswordHash = hash
			return nil
		}
	}
	return repositories.ErrNotFound
}

// fakeCodes is an in-memory CodeStore
type fakeCodes struct {
	rows map[string]models.OneTimeCode
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{rows: make(map[string]models.OneTimeCode)}
}

func (f *fakeCodes) Put(ctx context.Context, code *models.OneTimeCode) error {
	f.rows[code.Target] = *code
	return nil
}

func (f *fakeCodes) Get(ctx context.Context, target string) (*models.OneTimeCode, error) {
	code, ok := f.rows[target]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &code, nil
}

func (f *fakeCodes) RecordMiss(ctx context.Context, target string) (int, error) {
	code, ok := f.rows[target]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	code.Attempts++
	f.rows[target] = code
	return code.Attempts, nil
}

func (f *fakeCodes) Delete(ctx context.Context, target string) error {
	delete(f.rows, target)
	return nil
}

// fixedRuntime returns a runtime frozen at now
func fixedRuntime(now time.Time) Runtime {
	return Runtime{
		Location: now.Location(),
		Now:      func() time.Time { return now },
	}
}

func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
