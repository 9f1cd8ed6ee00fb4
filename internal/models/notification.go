package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderType is how often a journal reminder fires.
type ReminderType string

const (
	ReminderDaily   ReminderType = "daily"
	ReminderWeekly  ReminderType = "weekly"
	ReminderMonthly ReminderType = "monthly"
)

func (t ReminderType) Valid() bool {
	switch t {
	case ReminderDaily, ReminderWeekly, ReminderMonthly:
		return true
	}
	return false
}

// Notification is the reminder configuration attached to a journal
type Notification struct {
	ID        uuid.UUID    `json:"id"`
	JournalID uuid.UUID    `json:"journal_id"`
	Type      ReminderType `json:"type"`
	Time      string       `json:"time"` // HH:MM
	CreatedAt time.Time    `json:"created_at"`
}
