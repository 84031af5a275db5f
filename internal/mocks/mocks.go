// Package mocks provides in-memory implementations of the ports for testing.
// Both doubles support per-method error injection, artificial latency, and
// call counting so tests can assert fan-out behavior and failure handling.
package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// MockGraph is an in-memory stand-in for the knowledge-graph client.
type MockGraph struct {
	mu sync.RWMutex

	// Seeded data
	entities      map[string][]domain.Entity // entity type -> entities
	relationships []domain.Relationship
	queryResults  map[string]*domain.QueryResult // query substring -> result
	defaultResult *domain.QueryResult

	// Error and latency injection
	shouldFailOn map[string]error
	delays       map[string]time.Duration

	// Call recording
	calls map[string]int
	keys  map[string][]domain.CaseKey
}

// NewMockGraph creates an empty mock graph client.
func NewMockGraph() *MockGraph {
	return &MockGraph{
		entities:     make(map[string][]domain.Entity),
		queryResults: make(map[string]*domain.QueryResult),
		shouldFailOn: make(map[string]error),
		delays:       make(map[string]time.Duration),
		calls:        make(map[string]int),
		keys:         make(map[string][]domain.CaseKey),
	}
}

// SeedEntities registers entities returned for the given entity type.
func (m *MockGraph) SeedEntities(entityType string, entities ...domain.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entityType] = append(m.entities[entityType], entities...)
}

// SeedRelationships registers relationships returned by listing calls.
func (m *MockGraph) SeedRelationships(relationships ...domain.Relationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships = append(m.relationships, relationships...)
}

// SetQueryResult registers the result served when the query text contains
// substr. An empty substr sets the fallback for all queries.
func (m *MockGraph) SetQueryResult(substr string, result *domain.QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if substr == "" {
		m.defaultResult = result
		return
	}
	m.queryResults[substr] = result
}

// SetError configures the mock to fail the named method.
func (m *MockGraph) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *MockGraph) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

// SetDelay makes the named method sleep before answering; the sleep honors
// context cancellation.
func (m *MockGraph) SetDelay(method string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[method] = delay
}

// CallCount reports how many times the named method ran.
func (m *MockGraph) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// TotalCalls reports the call count across all methods.
func (m *MockGraph) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// KeysSeen lists the case keys the named method was called with.
func (m *MockGraph) KeysSeen(method string) []domain.CaseKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CaseKey, len(m.keys[method]))
	copy(out, m.keys[method])
	return out
}

// enter records the call, applies latency, and returns any injected error.
func (m *MockGraph) enter(ctx context.Context, method string, key domain.CaseKey) error {
	m.mu.Lock()
	m.calls[method]++
	m.keys[method] = append(m.keys[method], key)
	delay := m.delays[method]
	err := m.shouldFailOn[method]
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// QueryCase implements ports.GraphQuerier.
func (m *MockGraph) QueryCase(ctx context.Context, key domain.CaseKey, query string, searchType domain.SearchType, limit int) (*domain.QueryResult, error) {
	if key.CaseID == "" {
		return nil, apperrors.NewMissingCaseID("case id is required for case-scoped graph queries")
	}
	if err := m.enter(ctx, "QueryCase", key); err != nil {
		return nil, err
	}
	return m.resultFor(query), nil
}

// Research implements ports.GraphQuerier.
func (m *MockGraph) Research(ctx context.Context, key domain.CaseKey, query, jurisdiction string, searchType domain.SearchType) (*domain.QueryResult, error) {
	if key.ClientID == "" {
		return nil, apperrors.NewValidation("client id is required for research queries")
	}
	if err := m.enter(ctx, "Research", key); err != nil {
		return nil, err
	}

	result := m.resultFor(query)
	// The real client tags cross-case research results with the querying case.
	for i := range result.Entities {
		result.Entities[i].CaseID = key.CaseID
	}
	return result, nil
}

// resultFor picks the registered result whose substring matches the query,
// preferring the longest match, then the default, then an empty result.
func (m *MockGraph) resultFor(query string) *domain.QueryResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *domain.QueryResult
	bestLen := -1
	for substr, result := range m.queryResults {
		if strings.Contains(strings.ToLower(query), strings.ToLower(substr)) && len(substr) > bestLen {
			best = result
			bestLen = len(substr)
		}
	}
	if best == nil {
		best = m.defaultResult
	}
	if best == nil {
		return &domain.QueryResult{}
	}
	return cloneResult(best)
}

// ListCaseEntities implements ports.GraphQuerier.
func (m *MockGraph) ListCaseEntities(ctx context.Context, key domain.CaseKey, filter ports.EntityFilter) ([]domain.Entity, error) {
	if key.CaseID == "" {
		return nil, apperrors.NewMissingCaseID("case id is required to list case entities")
	}
	if err := m.enter(ctx, "ListCaseEntities", key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var pool []domain.Entity
	if filter.Type != "" {
		pool = m.entities[filter.Type]
	} else {
		for _, list := range m.entities {
			pool = append(pool, list...)
		}
	}

	out := make([]domain.Entity, 0, len(pool))
	for _, e := range pool {
		if filter.MinConfidence > 0 && e.Confidence < filter.MinConfidence {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// ListCaseRelationships implements ports.GraphQuerier.
func (m *MockGraph) ListCaseRelationships(ctx context.Context, key domain.CaseKey, filter ports.RelationshipFilter) ([]domain.Relationship, error) {
	if key.CaseID == "" {
		return nil, apperrors.NewMissingCaseID("case id is required to list case relationships")
	}
	if err := m.enter(ctx, "ListCaseRelationships", key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Relationship, 0, len(m.relationships))
	for _, r := range m.relationships {
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.MinConfidence > 0 && r.Confidence < filter.MinConfidence {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Health implements ports.GraphQuerier.
func (m *MockGraph) Health(ctx context.Context) error {
	return m.enter(ctx, "Health", domain.CaseKey{})
}

func cloneResult(r *domain.QueryResult) *domain.QueryResult {
	clone := *r
	clone.Entities = make([]domain.Entity, len(r.Entities))
	copy(clone.Entities, r.Entities)
	clone.Relationships = make([]domain.Relationship, len(r.Relationships))
	copy(clone.Relationships, r.Relationships)
	return &clone
}

// MockCaseStore is an in-memory stand-in for the relational case store.
type MockCaseStore struct {
	mu sync.RWMutex

	metadata map[string]*domain.CaseMetadata
	entities map[string][]domain.Entity
	events   map[string][]domain.CaseEvent

	shouldFailOn map[string]error
	delays       map[string]time.Duration
	calls        map[string]int
}

// NewMockCaseStore creates an empty mock case store.
func NewMockCaseStore() *MockCaseStore {
	return &MockCaseStore{
		metadata:     make(map[string]*domain.CaseMetadata),
		entities:     make(map[string][]domain.Entity),
		events:       make(map[string][]domain.CaseEvent),
		shouldFailOn: make(map[string]error),
		delays:       make(map[string]time.Duration),
		calls:        make(map[string]int),
	}
}

// SeedCase registers a case row.
func (m *MockCaseStore) SeedCase(meta *domain.CaseMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[meta.CaseKey.String()] = meta
}

// SeedEntities registers stored entities for a case.
func (m *MockCaseStore) SeedEntities(key domain.CaseKey, entities ...domain.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[key.String()] = append(m.entities[key.String()], entities...)
}

// SeedEvents registers timeline events for a case.
func (m *MockCaseStore) SeedEvents(key domain.CaseKey, events ...domain.CaseEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[key.String()] = append(m.events[key.String()], events...)
}

// SetError configures the mock to fail the named method.
func (m *MockCaseStore) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *MockCaseStore) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

// SetDelay makes the named method sleep before answering.
func (m *MockCaseStore) SetDelay(method string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[method] = delay
}

// CallCount reports how many times the named method ran.
func (m *MockCaseStore) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MockCaseStore) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	m.calls[method]++
	delay := m.delays[method]
	err := m.shouldFailOn[method]
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// GetCaseMetadata implements ports.CaseStore.
func (m *MockCaseStore) GetCaseMetadata(ctx context.Context, key domain.CaseKey) (*domain.CaseMetadata, error) {
	if err := key.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := m.enter(ctx, "GetCaseMetadata"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, ok := m.metadata[key.String()]
	if !ok {
		return nil, apperrors.NewCaseNotFound("case " + key.CaseID + " not found")
	}
	copied := *meta
	return &copied, nil
}

// ListEntities implements ports.CaseStore.
func (m *MockCaseStore) ListEntities(ctx context.Context, key domain.CaseKey, types []string, limit int) ([]domain.Entity, error) {
	if err := key.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := m.enter(ctx, "ListEntities"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	out := make([]domain.Entity, 0)
	for _, e := range m.entities[key.String()] {
		if len(wanted) > 0 && !wanted[e.Type] {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListEvents implements ports.CaseStore.
func (m *MockCaseStore) ListEvents(ctx context.Context, key domain.CaseKey, since, until *time.Time) ([]domain.CaseEvent, error) {
	if err := key.Validate(); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if err := m.enter(ctx, "ListEvents"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.CaseEvent, 0)
	for _, e := range m.events[key.String()] {
		if since != nil && e.Date.Before(*since) {
			continue
		}
		if until != nil && e.Date.After(*until) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Ping reports mock store health.
func (m *MockCaseStore) Ping(ctx context.Context) error {
	return m.enter(ctx, "Ping")
}
