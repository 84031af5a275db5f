package casedb

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context-engine/internal/domain"
)

func TestMapCaseRow(t *testing.T) {
	filed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Should map a full row", func(t *testing.T) {
		meta := mapCaseRow(caseRow{
			ID:           "case-123",
			ClientID:     "client-abc",
			Name:         sql.NullString{String: "Acme v. Initech", Valid: true},
			Status:       "ACTIVE",
			FilingDate:   sql.NullTime{Time: filed, Valid: true},
			Jurisdiction: sql.NullString{String: "CA", Valid: true},
			Court:        sql.NullString{String: "Superior Court", Valid: true},
			Venue:        sql.NullString{String: "Los Angeles", Valid: true},
			Judge:        sql.NullString{String: "Hon. Reyes", Valid: true},
		})

		assert.Equal(t, "client-abc", meta.CaseKey.ClientID)
		assert.Equal(t, "case-123", meta.CaseKey.CaseID)
		assert.Equal(t, domain.CaseStatusActive, meta.Status)
		require.NotNil(t, meta.FilingDate)
		assert.Equal(t, filed, *meta.FilingDate)
		assert.Equal(t, "Hon. Reyes", meta.Judge)
	})

	t.Run("Should treat unrecognized status as unknown", func(t *testing.T) {
		meta := mapCaseRow(caseRow{ID: "c", ClientID: "cl", Status: "ARCHIVED??"})
		assert.Equal(t, domain.CaseStatusUnknown, meta.Status)
		assert.Nil(t, meta.FilingDate)
	})
}

func TestMapEntityRows(t *testing.T) {
	entities := mapEntityRows([]entityRow{
		{
			ID:          "e1",
			CaseID:      "case-123",
			Type:        domain.EntityTypeParty,
			Name:        "Acme Corp",
			Description: sql.NullString{String: "Plaintiff", Valid: true},
			Confidence:  sql.NullFloat64{Float64: 0.92, Valid: true},
		},
		{ID: "e2", CaseID: "case-123", Type: domain.EntityTypeWitness, Name: "J. Doe"},
	})

	require.Len(t, entities, 2)
	assert.Equal(t, 0.92, entities[0].Confidence)
	assert.Equal(t, "Plaintiff", entities[0].Description)
	// Null confidence maps to zero, not an error.
	assert.Zero(t, entities[1].Confidence)
}

func TestMapEventRows(t *testing.T) {
	due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

	events := mapEventRows([]eventRow{
		{
			ID:       "ev1",
			Type:     "FILING_DEADLINE",
			Title:    "Motion deadline",
			OccursAt: due,
			Deadline: true,
		},
	})

	require.Len(t, events, 1)
	assert.True(t, events[0].Deadline)
	assert.False(t, events[0].Completed)
	assert.Equal(t, due, events[0].Date)
}
