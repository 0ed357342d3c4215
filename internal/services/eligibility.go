package services

import (
	"strings"
	"time"

	"example.com/backstage/services/dairy/internal/models"
)

// DefaultReminderTime is used when a reminder is configured without a time
const DefaultReminderTime = "21:00"

const reminderTimeLayout = "15:04"

// NormalizeInterval coerces a reminder interval to at least one day
func NormalizeInterval(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// DueByDate reports whether a slot's cooldown has passed. With no previous
// send it is always due; otherwise today must not be before the last-sent
// calendar day plus the interval. today is a civil date from models.CivilDate.
func DueByDate(lastSent *time.Time, intervalDays int, today time.Time, loc *time.Location) bool {
	if lastSent == nil {
		return true
	}
	nextDue := models.CivilDate(*lastSent, loc).AddDate(0, 0, NormalizeInterval(intervalDays))
	return !today.Before(nextDue)
}

// DueByTime reports whether the configured "HH:MM" equals the hour and
// minute of now. Seconds are ignored.
func DueByTime(reminderTime string, now time.Time) bool {
	at, err := ParseReminderTime(reminderTime)
	if err != nil {
		return false
	}
	return at.Hour() == now.Hour() && at.Minute() == now.Minute()
}

// ParseReminderTime parses "HH:MM", also accepting a trailing ":SS"
func ParseReminderTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) == len("15:04:05") {
		return time.Parse("15:04:05", value)
	}
	return time.Parse(reminderTimeLayout, value)
}
