// Package casedb implements the relational case store over Postgres. Every
// query filters by client id and case id; the tenancy boundary is enforced in
// SQL, not in callers.
package casedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"context-engine/internal/config"
	"context-engine/internal/domain"
	apperrors "context-engine/pkg/errors"
)

// Store implements ports.CaseStore on a sqlx connection pool.
type Store struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewStore opens the pool and verifies connectivity.
func NewStore(ctx context.Context, cfg config.CaseDB, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open case database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach case database: %w", err)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	logger.Info("case database connected",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Duration("query_timeout", timeout),
	)

	return &Store{db: db, queryTimeout: timeout, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports pool health for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type caseRow struct {
	ID           string         `db:"id"`
	ClientID     string         `db:"client_id"`
	Name         sql.NullString `db:"name"`
	Status       string         `db:"status"`
	FilingDate   sql.NullTime   `db:"filing_date"`
	Jurisdiction sql.NullString `db:"jurisdiction"`
	Court        sql.NullString `db:"court"`
	Venue        sql.NullString `db:"venue"`
	Judge        sql.NullString `db:"judge"`
}

type entityRow struct {
	ID          string          `db:"id"`
	CaseID      string          `db:"case_id"`
	Type        string          `db:"type"`
	Name        string          `db:"name"`
	Description sql.NullString  `db:"description"`
	Confidence  sql.NullFloat64 `db:"confidence"`
}

type eventRow struct {
	ID          string         `db:"id"`
	Type        string         `db:"type"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	OccursAt    time.Time      `db:"occurs_at"`
	Deadline    bool           `db:"is_deadline"`
	Completed   bool           `db:"is_completed"`
}

const caseQuery = `
SELECT id, client_id, name, status, filing_date, jurisdiction, court, venue, judge
FROM cases
WHERE client_id = $1 AND id = $2`

// GetCaseMetadata returns the case row or a not-found error.
func (s *Store) GetCaseMetadata(ctx context.Context, key domain.CaseKey) (*domain.CaseMetadata, error) {
	if err := key.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var row caseRow
	if err := s.db.GetContext(ctx, &row, caseQuery, key.ClientID, key.CaseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewCaseNotFound(fmt.Sprintf("case %s not found", key.CaseID))
		}
		return nil, apperrors.NewUnavailable("case database query failed", err)
	}

	return mapCaseRow(row), nil
}

func mapCaseRow(row caseRow) *domain.CaseMetadata {
	meta := &domain.CaseMetadata{
		CaseKey:      domain.CaseKey{ClientID: row.ClientID, CaseID: row.ID},
		Name:         row.Name.String,
		Status:       domain.ParseCaseStatus(row.Status),
		Jurisdiction: row.Jurisdiction.String,
		Court:        row.Court.String,
		Venue:        row.Venue.String,
		Judge:        row.Judge.String,
	}
	if row.FilingDate.Valid {
		filed := row.FilingDate.Time
		meta.FilingDate = &filed
	}
	return meta
}

const entityBaseQuery = `
SELECT id, case_id, type, name, description, confidence
FROM case_entities
WHERE client_id = $1 AND case_id = $2`

// ListEntities lists stored entities, optionally narrowed to the given types.
func (s *Store) ListEntities(ctx context.Context, key domain.CaseKey, types []string, limit int) ([]domain.Entity, error) {
	if err := key.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := entityBaseQuery
	args := []any{key.ClientID, key.CaseID}
	if len(types) > 0 {
		query += fmt.Sprintf(" AND type = ANY($%d)", len(args)+1)
		args = append(args, types)
	}
	query += " ORDER BY confidence DESC, id ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	// pgx encodes slice arguments as Postgres arrays, so ANY($n) takes the
	// []string directly.
	var rows []entityRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewUnavailable("case database query failed", err)
	}

	return mapEntityRows(rows), nil
}

func mapEntityRows(rows []entityRow) []domain.Entity {
	entities := make([]domain.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, domain.Entity{
			ID:          row.ID,
			CaseID:      row.CaseID,
			Type:        row.Type,
			Name:        row.Name,
			Description: row.Description.String,
			Confidence:  row.Confidence.Float64,
		})
	}
	return entities
}

const eventBaseQuery = `
SELECT id, type, title, description, occurs_at, is_deadline, is_completed
FROM case_events
WHERE client_id = $1 AND case_id = $2`

// ListEvents lists timeline events, optionally bounded by time.
func (s *Store) ListEvents(ctx context.Context, key domain.CaseKey, since, until *time.Time) ([]domain.CaseEvent, error) {
	if err := key.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := eventBaseQuery
	args := []any{key.ClientID, key.CaseID}
	if since != nil {
		query += fmt.Sprintf(" AND occurs_at >= $%d", len(args)+1)
		args = append(args, *since)
	}
	if until != nil {
		query += fmt.Sprintf(" AND occurs_at <= $%d", len(args)+1)
		args = append(args, *until)
	}
	query += " ORDER BY occurs_at ASC, id ASC"

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewUnavailable("case database query failed", err)
	}

	return mapEventRows(rows), nil
}

func mapEventRows(rows []eventRow) []domain.CaseEvent {
	events := make([]domain.CaseEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, domain.CaseEvent{
			ID:          row.ID,
			Type:        row.Type,
			Title:       row.Title,
			Description: row.Description.String,
			Date:        row.OccursAt,
			Deadline:    row.Deadline,
			Completed:   row.Completed,
		})
	}
	return events
}
