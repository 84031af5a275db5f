// Package graphrag implements the knowledge-graph client: HTTP JSON
// transport with retry, circuit breaking and case-isolation enforcement.
package graphrag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/observability"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

const defaultTimeout = 20 * time.Second

// Client talks to the graph service over HTTP. A single circuit breaker
// guards the base URL and observes whole retried calls, so a run of
// exhausted retries trips it while one flaky attempt does not.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	retry      RetryConfig
	logger     *zap.Logger
	collector  *observability.Collector
}

// NewClient builds the graph client from configuration.
func NewClient(cfg config.Graph, logger *zap.Logger, collector *observability.Collector) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retry := DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBase > 0 {
		retry.BaseDelay = cfg.RetryBase
	}
	if cfg.RetryMaxDelay > 0 {
		retry.MaxDelay = cfg.RetryMaxDelay
	}

	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	baseURL := strings.TrimRight(cfg.Endpoint, "/")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        baseURL,
		MaxRequests: 1, // single half-open probe
		Timeout:     cfg.BreakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Only infrastructure faults count against the breaker. Upstream
			// rejections and caller cancellations leave it alone.
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("graph breaker state change",
				zap.String("endpoint", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			collector.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		retry:      retry,
		logger:     logger,
		collector:  collector,
	}
}

// Wire types for the graph service API.

type queryRequest struct {
	ClientID   string `json:"client_id"`
	CaseID     string `json:"case_id"`
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
	Limit      int    `json:"limit,omitempty"`
}

type researchRequest struct {
	ClientID     string `json:"client_id"`
	Query        string `json:"query"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	SearchType   string `json:"search_type"`
}

type entityListResponse struct {
	Entities []domain.Entity `json:"entities"`
	Total    int             `json:"total"`
}

type relationshipListResponse struct {
	Relationships []domain.Relationship `json:"relationships"`
	Total         int                   `json:"total"`
}

// QueryCase runs a case-scoped graph query.
func (c *Client) QueryCase(ctx context.Context, key domain.CaseKey, queryText string, searchType domain.SearchType, limit int) (*domain.QueryResult, error) {
	if key.CaseID == "" {
		return nil, apperrors.NewMissingCaseID("case id is required for case-scoped graph queries")
	}

	body := queryRequest{
		ClientID:   key.ClientID,
		CaseID:     key.CaseID,
		Query:      queryText,
		SearchType: string(searchType),
		Limit:      limit,
	}

	var result domain.QueryResult
	err := c.call(ctx, "query", func() error {
		result = domain.QueryResult{}
		return c.doJSON(ctx, http.MethodPost, "/api/v1/query", nil, body, &result)
	})
	if err != nil {
		return nil, err
	}

	result.Entities = c.isolateEntities(key, "query", result.Entities)
	result.Relationships = c.isolateRelationships(key, "query", result.Relationships)
	return &result, nil
}

// ListCaseEntities lists entities belonging to the case.
func (c *Client) ListCaseEntities(ctx context.Context, key domain.CaseKey, filter ports.EntityFilter) ([]domain.Entity, error) {
	if key.CaseID == "" {
		return nil, apperrors.NewMissingCaseID("case id is required to list case entities")
	}

	query := url.Values{}
	query.Set("client_id", key.ClientID)
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	if filter.MinConfidence > 0 {
		query.Set("min_confidence", strconv.FormatFloat(filter.MinConfidence, 'f', -1, 64))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := fmt.Sprintf("/api/v1/cases/%s/entities", url.PathEscape(key.CaseID))

	var resp entityListResponse
	err := c.call(ctx, "list_entities", func() error {
		resp = entityListResponse{}
		return c.doJSON(ctx, http.MethodGet, path, query, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	return c.isolateEntities(key, "list_entities", resp.Entities), nil
}

// ListCaseRelationships lists relationships belonging to the case.
func (c *Client) ListCaseRelationships(ctx context.Context, key domain.CaseKey, filter ports.RelationshipFilter) ([]domain.Relationship, error) {
	if key.CaseID == "" {
		return nil, apperrors.NewMissingCaseID("case id is required to list case relationships")
	}

	query := url.Values{}
	query.Set("client_id", key.ClientID)
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	if filter.MinConfidence > 0 {
		query.Set("min_confidence", strconv.FormatFloat(filter.MinConfidence, 'f', -1, 64))
	}

	path := fmt.Sprintf("/api/v1/cases/%s/relationships", url.PathEscape(key.CaseID))

	var resp relationshipListResponse
	err := c.call(ctx, "list_relationships", func() error {
		resp = relationshipListResponse{}
		return c.doJSON(ctx, http.MethodGet, path, query, nil, &resp)
	})
	if err != nil {
		return nil, err
	}

	return c.isolateRelationships(key, "list_relationships", resp.Relationships), nil
}

// Research runs a cross-case query. Results are tagged with the querying
// case so they join that case's context; the source case survives in the
// entity properties.
func (c *Client) Research(ctx context.Context, key domain.CaseKey, queryText, jurisdiction string, searchType domain.SearchType) (*domain.QueryResult, error) {
	if key.ClientID == "" {
		return nil, apperrors.NewValidation("client id is required for research queries")
	}
	switch searchType {
	case domain.SearchTypeGlobal, domain.SearchTypeHybrid:
	case "":
		searchType = domain.SearchTypeHybrid
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("research does not support search type %s", searchType))
	}

	body := researchRequest{
		ClientID:     key.ClientID,
		Query:        queryText,
		Jurisdiction: jurisdiction,
		SearchType:   string(searchType),
	}

	var result domain.QueryResult
	err := c.call(ctx, "research", func() error {
		result = domain.QueryResult{}
		return c.doJSON(ctx, http.MethodPost, "/api/v1/research", nil, body, &result)
	})
	if err != nil {
		return nil, err
	}

	c.tagResearchResults(key, &result)
	return &result, nil
}

// Health probes the graph service with a single direct request, outside the
// breaker and without retry.
func (c *Client) Health(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewUnavailable("graph service health check failed", err)
	}
	return nil
}

// call wraps one logical operation with the retry loop and the breaker.
func (c *Client) call(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, retryWithBackoff(ctx, c.retry, func(attempt int, cause error) {
			c.collector.UpstreamRetries.Inc()
			c.logger.Warn("retrying graph request",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(cause),
			)
		}, fn)
	})

	c.collector.UpstreamDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.collector.UpstreamRequests.WithLabelValues(operation, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.collector.UpstreamRequests.WithLabelValues(operation, "breaker_open").Inc()
		return apperrors.NewUnavailable("graph service unavailable: circuit open", err)
	case isTransient(err):
		c.collector.UpstreamRequests.WithLabelValues(operation, "unavailable").Inc()
		return apperrors.NewUnavailable("graph service unavailable", err)
	default:
		c.collector.UpstreamRequests.WithLabelValues(operation, "error").Inc()
		return err
	}
}

// doJSON performs a single HTTP exchange. Transport faults, timeouts and 5xx
// answers come back transient-marked; 4xx answers come back as rejections.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternal("failed to encode graph request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return apperrors.NewInternal("failed to build graph request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return markTransient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return markTransient(fmt.Errorf("graph service answered %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.NewRejected(
			fmt.Sprintf("graph service rejected request with status %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(detail))),
		)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewRejected("graph service returned a malformed response", err)
	}
	return nil
}

// isolateEntities drops entities belonging to a different case and tags
// untagged ones with the requesting case.
func (c *Client) isolateEntities(key domain.CaseKey, operation string, entities []domain.Entity) []domain.Entity {
	kept := entities[:0]
	var foreign, untagged int

	for _, e := range entities {
		switch e.CaseID {
		case key.CaseID:
			kept = append(kept, e)
		case "":
			e.CaseID = key.CaseID
			untagged++
			kept = append(kept, e)
		default:
			foreign++
		}
	}

	if foreign > 0 {
		c.collector.IsolationDrops.Add(float64(foreign))
		c.logger.Warn("discarded graph entities from another case",
			zap.String("operation", operation),
			zap.String("case", key.String()),
			zap.Int("discarded", foreign),
		)
	}
	if untagged > 0 {
		c.logger.Warn("graph entities arrived without a case id",
			zap.String("operation", operation),
			zap.String("case", key.String()),
			zap.Int("tagged", untagged),
		)
	}
	return kept
}

// isolateRelationships applies the same policy to relationship edges.
func (c *Client) isolateRelationships(key domain.CaseKey, operation string, relationships []domain.Relationship) []domain.Relationship {
	kept := relationships[:0]
	var foreign int

	for _, r := range relationships {
		switch r.CaseID {
		case key.CaseID:
			kept = append(kept, r)
		case "":
			r.CaseID = key.CaseID
			kept = append(kept, r)
		default:
			foreign++
		}
	}

	if foreign > 0 {
		c.collector.IsolationDrops.Add(float64(foreign))
		c.logger.Warn("discarded graph relationships from another case",
			zap.String("operation", operation),
			zap.String("case", key.String()),
			zap.Int("discarded", foreign),
		)
	}
	return kept
}

// tagResearchResults stamps cross-case results with the querying case,
// preserving the original case in the entity properties.
func (c *Client) tagResearchResults(key domain.CaseKey, result *domain.QueryResult) {
	for i := range result.Entities {
		e := &result.Entities[i]
		if e.CaseID != "" && e.CaseID != key.CaseID {
			if e.Properties == nil {
				e.Properties = map[string]any{}
			}
			e.Properties["source_case_id"] = e.CaseID
		}
		e.CaseID = key.CaseID
	}
	for i := range result.Relationships {
		result.Relationships[i].CaseID = key.CaseID
	}
}
