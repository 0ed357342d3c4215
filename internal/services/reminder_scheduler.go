package services

import (
	"context"
	"strings"
	"time"

	"example.com/backstage/services/dairy/internal/metrics"
	"example.com/backstage/services/dairy/internal/models"
	"example.com/backstage/services/dairy/internal/notify"
	"example.com/backstage/services/dairy/internal/repositories"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Reminder triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Dispatch outcomes
const (
	DispatchSent    = "SENT"
	DispatchFailed  = "SENT_FAILED"
	DispatchAllPaid = "ALL_PAID"
)

// ReminderSettingsInput is the owner+shift reminder configuration write
type ReminderSettingsInput struct {
	OwnerID      uint   `json:"ownerId" validate:"required"`
	Shift        string `json:"shift" validate:"required"`
	Time         string `json:"time" validate:"omitempty,datetime=15:04"`
	Enabled      bool   `json:"enabled"`
	IntervalDays int    `json:"intervalDays"`
}

// DispatchResult describes one claimed reminder slot
type DispatchResult struct {
	OwnerID      uint                 `json:"ownerId"`
	Shift        string               `json:"shift"`
	Outcome      string               `json:"outcome"`
	Subject      string               `json:"subject,omitempty"`
	Unpaid       []notify.ReportRow   `json:"unpaid"`
	Notification *models.Notification `json:"notification,omitempty"`
}

type slotKey struct {
	ownerID uint
	shift   string
}

// ReminderScheduler decides once per tick which (owner, shift) reminder
// slots are due and dispatches each at most once per slot minute
type ReminderScheduler struct {
	customers     CustomerStore
	claims        ClaimStore
	notifications NotificationStore
	indexer       NotificationIndexer
	payments      *PaymentService
	overview      *OverviewService
	notifier      notify.Notifier
	instanceID    string
	rt            Runtime
}

// NewReminderScheduler creates a new reminder scheduler. indexer may be nil.
func NewReminderScheduler(
	customers CustomerStore,
	claims ClaimStore,
	notifications NotificationStore,
	indexer NotificationIndexer,
	payments *PaymentService,
	overview *OverviewService,
	notifier notify.Notifier,
	instanceID string,
	rt Runtime,
) *ReminderScheduler {
	return &ReminderScheduler{
		customers:     customers,
		claims:        claims,
		notifications: notifications,
		indexer:       indexer,
		payments:      payments,
		overview:      overview,
		notifier:      notifier,
		instanceID:    instanceID,
		rt:            rt,
	}
}

// Tick runs one scheduler pass. Failures are isolated per slot; only a
// failure to load the reminder configuration is returned.
func (s *ReminderScheduler) Tick(ctx context.Context) ([]DispatchResult, error) {
	now := s.rt.now()
	loc := s.rt.location()
	today := models.CivilDate(now, loc)
	slot := now.Truncate(time.Minute)

	if err := notify.Ready(s.notifier); err != nil {
		log.Error().Err(err).Time("tick", now).Msg("Reminder tick skipped")
		return nil, errors.Wrap(err, "reminders cannot be sent")
	}

	tracer := s.rt.tracer()
	txn := tracer.StartTransaction("reminder-tick")
	defer tracer.EndTransaction(txn)
	s.rt.Metrics.RecordTick()

	customers, err := s.customers.ListReminderEnabled(ctx)
	if err != nil {
		tracer.RecordError(txn, err)
		s.rt.Metrics.RecordError("scheduler")
		log.Error().Err(err).Time("tick", now).Msg("Failed to load reminder configuration")
		return nil, errors.Wrap(err, "failed to load reminder configuration")
	}

	seen := make(map[slotKey]bool)
	var results []DispatchResult

	for _, c := range customers {
		key := slotKey{ownerID: c.OwnerID, shift: c.ReminderSlotShift()}
		if seen[key] {
			continue
		}
		seen[key] = true

		if c.ReminderTime == nil {
			continue
		}
		if !DueByDate(c.LastReminderSent, c.ReminderIntervalDays, today, loc) {
			continue
		}
		if !DueByTime(*c.ReminderTime, now) {
			continue
		}

		result, err := s.dispatch(ctx, txn, key, now, slot, TriggerScheduled)
		if errors.Is(err, ErrAlreadyClaimed) {
			log.Debug().
				Uint("owner_id", key.ownerID).
				Str("shift", key.shift).
				Time("slot", slot).
				Str("instance", s.instanceID).
				Msg("Reminder slot already claimed, skipping")
			continue
		}
		if err != nil {
			tracer.RecordError(txn, err)
			log.Error().
				Err(err).
				Uint("owner_id", key.ownerID).
				Str("shift", key.shift).
				Time("slot", slot).
				Str("instance", s.instanceID).
				Msg("Reminder dispatch failed")
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

// SendNow dispatches an owner+shift reminder immediately, bypassing the date
// and time checks. It still claims the slot minute, so it conflicts with a
// concurrent scheduled send for the same minute.
func (s *ReminderScheduler) SendNow(ctx context.Context, ownerID uint, shift string) (*DispatchResult, error) {
	shift = strings.TrimSpace(shift)
	if ownerID == 0 {
		return nil, invalidf("owner id is required")
	}
	if shift == "" {
		return nil, invalidf("shift is required")
	}
	if err := notify.Ready(s.notifier); err != nil {
		return nil, errors.Wrap(err, "reminders cannot be sent")
	}

	tracer := s.rt.tracer()
	txn := tracer.StartTransaction("reminder-send-now")
	defer tracer.EndTransaction(txn)

	now := s.rt.now()
	result, err := s.dispatch(ctx, txn, slotKey{ownerID: ownerID, shift: shift}, now, now.Truncate(time.Minute), TriggerManual)
	if err != nil {
		tracer.RecordError(txn, err)
		log.Warn().
			Err(err).
			Uint("owner_id", ownerID).
			Str("shift", shift).
			Time("at", now).
			Msg("Manual reminder not sent")
	}
	return result, err
}

// dispatch claims a slot and, on winning, sends the unpaid report. A failed
// send keeps the claim and leaves last-sent untouched. The returned result is
// non-nil whenever the claim was won.
func (s *ReminderScheduler) dispatch(ctx context.Context, txn *newrelic.Transaction, key slotKey, now, slot time.Time, trigger string) (*DispatchResult, error) {
	tracer := s.rt.tracer()

	span := tracer.StartSpan("claim-slot", txn)
	won, err := s.claims.Claim(ctx, key.ownerID, key.shift, slot, s.instanceID)
	span.End()
	if err != nil {
		s.rt.Metrics.RecordReminder(trigger, metrics.OutcomeClaimError)
		return nil, errors.Wrap(err, "failed to claim reminder slot")
	}
	if !won {
		s.rt.Metrics.RecordReminder(trigger, metrics.OutcomeConflict)
		return nil, errors.Wrapf(ErrAlreadyClaimed, "owner %d shift %s at %s", key.ownerID, key.shift, slot.Format("2006-01-02 15:04"))
	}

	result := &DispatchResult{OwnerID: key.ownerID, Shift: key.shift}

	span = tracer.StartSpan("build-unpaid-report", txn)
	rows, err := s.UnpaidReport(ctx, key.ownerID, key.shift)
	span.End()
	if err != nil {
		result.Outcome = DispatchFailed
		s.rt.Metrics.RecordReminder(trigger, metrics.OutcomeFailed)
		return result, errors.Wrap(err, "failed to build unpaid report")
	}
	result.Unpaid = rows

	if len(rows) == 0 {
		result.Outcome = DispatchAllPaid
		s.rt.Metrics.RecordReminder(trigger, metrics.OutcomeAllPaid)
		if err := s.customers.UpdateLastReminderSent(ctx, key.ownerID, key.shift, now); err != nil {
			return result, errors.Wrap(err, "failed to advance last reminder sent")
		}
		log.Info().
			Uint("owner_id", key.ownerID).
			Str("shift", key.shift).
			Str("trigger", trigger).
			Msg("All customers paid, no reminder sent")
		return result, nil
	}

	subject := notify.UnpaidSubject(key.shift, now)
	body := notify.BuildUnpaidReport(key.shift, rows)
	result.Subject = subject

	span = tracer.StartSpan("send-email", txn)
	sendErr := s.notifier.Send(ctx, subject, body)
	span.End()

	notification := &models.Notification{
		OwnerID:  key.ownerID,
		Shift:    key.shift,
		Subject:  subject,
		Body:     body,
		Type:     "EMAIL",
		Trigger:  trigger,
		Status:   models.NotificationSent,
		DateSent: now,
	}
	if sendErr != nil {
		notification.Status = models.NotificationFailed
		notification.Error = sendErr.Error()
	}
	result.Notification = notification
	s.record(ctx, notification)

	if sendErr != nil {
		result.Outcome = DispatchFailed
		s.rt.Metrics.RecordReminder(trigger, metrics.OutcomeFailed)
		return result, errors.Wrap(sendErr, "failed to send unpaid report")
	}

	result.Outcome = DispatchSent
	s.rt.Metrics.RecordReminder(trigger, metrics.OutcomeSent)
	if err := s.customers.UpdateLastReminderSent(ctx, key.ownerID, key.shift, now); err != nil {
		return result, errors.Wrap(err, "failed to advance last reminder sent")
	}

	log.Info().
		Uint("owner_id", key.ownerID).
		Str("shift", key.shift).
		Str("trigger", trigger).
		Int("unpaid", len(rows)).
		Msg("Unpaid reminder sent")
	return result, nil
}

// record stores and indexes a dispatch attempt. Failures here never change
// the dispatch outcome.
func (s *ReminderScheduler) record(ctx context.Context, n *models.Notification) {
	if err := s.notifications.Create(ctx, n); err != nil {
		s.rt.Metrics.RecordError("notification_log")
		log.Error().Err(err).Uint("owner_id", n.OwnerID).Str("shift", n.Shift).Msg("Failed to record notification")
		return
	}
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexNotification(ctx, n); err != nil {
		s.rt.Metrics.RecordError("search")
		log.Warn().Err(err).Uint("notification_id", n.ID).Msg("Failed to index notification")
	}
}

// UnpaidReport lists today's unpaid active customers of a shift with their
// month-to-date quantity, current rate and amount
func (s *ReminderScheduler) UnpaidReport(ctx context.Context, ownerID uint, shift string) ([]notify.ReportRow, error) {
	payments, err := s.payments.TodayPayments(ctx, ownerID, shift)
	if err != nil {
		return nil, err
	}

	var unpaid []models.PaymentStatus
	for _, p := range payments {
		if !p.Paid {
			unpaid = append(unpaid, p)
		}
	}
	if len(unpaid) == 0 {
		return nil, nil
	}

	now := s.rt.now()
	ov, err := s.overview.Overview(ctx, ownerID, shift, now.Year(), int(now.Month()))
	if err != nil {
		return nil, err
	}

	index := NewNameIndex(ov.Customers)
	rows := make([]notify.ReportRow, 0, len(unpaid))
	for _, p := range unpaid {
		customer, ok := index.Lookup(p.CustomerName)
		if !ok {
			// no active customer behind this row
			continue
		}
		rows = append(rows, notify.ReportRow{
			CustomerName: p.CustomerName,
			Quantity:     ov.TotalQuantityPerCustomer[customer.ID],
			Rate:         customer.Price(),
			Amount:       ov.TotalAmountPerCustomer[customer.ID],
		})
	}
	return rows, nil
}

// Configure writes the reminder settings of an owner's shift. Enabling
// clears last-sent so the new time can fire at its next matching minute.
func (s *ReminderScheduler) Configure(ctx context.Context, input ReminderSettingsInput) error {
	input.Shift = strings.TrimSpace(input.Shift)
	input.Time = strings.TrimSpace(input.Time)
	if err := validate.Struct(input); err != nil {
		return invalidf("%s", err.Error())
	}
	if input.Time == "" {
		input.Time = DefaultReminderTime
	}

	rows, err := s.customers.ConfigureReminder(ctx, input.OwnerID, input.Shift, repositories.ReminderSettings{
		Enabled:      input.Enabled,
		Time:         input.Time,
		IntervalDays: NormalizeInterval(input.IntervalDays),
	})
	if err != nil {
		return errors.Wrap(err, "failed to save reminder settings")
	}
	if rows == 0 {
		return errors.Wrapf(ErrNotFound, "no customers in shift %s", input.Shift)
	}

	log.Info().
		Uint("owner_id", input.OwnerID).
		Str("shift", input.Shift).
		Bool("enabled", input.Enabled).
		Str("time", input.Time).
		Int("interval_days", NormalizeInterval(input.IntervalDays)).
		Msg("Reminder settings saved")
	return nil
}
