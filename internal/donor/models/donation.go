package models

import "time"

// Donation is an append-only record of a single recorded donation.
type Donation struct {
	ID           int64     `json:"donation_id"`
	DonorID      int64     `json:"donor_id"`
	DonationDate time.Time `json:"donation_date"`
	Location     string    `json:"location"`
}

// HistoryStatus is the activity state captured in a history entry.
type HistoryStatus string

const (
	HistoryStatusActive   HistoryStatus = "active"
	HistoryStatusInactive HistoryStatus = "inactive"
)

// HistoryEntry is an append-only audit row for an activity-state transition.
// Name is a snapshot taken when the entry was written.
type HistoryEntry struct {
	ID         int64         `json:"history_id"`
	DonorID    int64         `json:"donor_id"`
	Name       string        `json:"name"`
	Status     HistoryStatus `json:"status"`
	RecordDate time.Time     `json:"record_date"`
}
