package domain

import "time"

// CaseMetadata is the case store's row for a case, used for the envelope,
// the WHERE dimension, and status-based cache TTL.
type CaseMetadata struct {
	CaseKey      CaseKey    `json:"case_key"`
	Name         string     `json:"name,omitempty"`
	Status       CaseStatus `json:"status"`
	FilingDate   *time.Time `json:"filing_date,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	Court        string     `json:"court,omitempty"`
	Venue        string     `json:"venue,omitempty"`
	Judge        string     `json:"judge,omitempty"`
}

// CaseEvent is one timeline row. Deadline rows drive the WHEN dimension's
// urgency scoring.
type CaseEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Deadline    bool      `json:"deadline"`
	Completed   bool      `json:"completed"`
}
