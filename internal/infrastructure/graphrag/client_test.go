package graphrag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/observability"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

func newTestClient(t *testing.T, endpoint string, cfg config.Graph) *Client {
	t.Helper()
	cfg.Endpoint = endpoint
	if cfg.RetryBase == 0 {
		cfg.RetryBase = time.Millisecond
	}
	return NewClient(cfg, zap.NewNop(), observability.NewCollector("test"))
}

func testKey() domain.CaseKey {
	return domain.CaseKey{ClientID: "client-abc", CaseID: "case-123"}
}

func TestQueryCase(t *testing.T) {
	t.Run("Should send case-scoped request and isolate results", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			require.Equal(t, "/api/v1/query", r.URL.Path)

			var req queryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "client-abc", req.ClientID)
			assert.Equal(t, "case-123", req.CaseID)
			assert.Equal(t, "LOCAL", req.SearchType)

			json.NewEncoder(w).Encode(domain.QueryResult{
				Entities: []domain.Entity{
					{ID: "e1", CaseID: "case-123", Type: domain.EntityTypeParty, Name: "Acme Corp", Confidence: 0.9},
					{ID: "e2", CaseID: "case-999", Type: domain.EntityTypeParty, Name: "Leaked", Confidence: 0.8},
					{ID: "e3", CaseID: "", Type: domain.EntityTypeJudge, Name: "Hon. Reyes", Confidence: 0.7},
				},
				Relationships: []domain.Relationship{
					{ID: "r1", CaseID: "case-123", Type: domain.RelationshipRepresents, SourceID: "e1", TargetID: "e3", Confidence: 0.8},
					{ID: "r2", CaseID: "case-999", Type: domain.RelationshipOpposes, SourceID: "x", TargetID: "y", Confidence: 0.9},
				},
				Confidence: 0.85,
			})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{})
		result, err := client.QueryCase(context.Background(), testKey(), "who are the parties", domain.SearchTypeLocal, 10)

		require.NoError(t, err)
		require.Len(t, result.Entities, 2)
		assert.Equal(t, "e1", result.Entities[0].ID)
		assert.Equal(t, "e3", result.Entities[1].ID)
		// Untagged entities get stamped with the requesting case.
		assert.Equal(t, "case-123", result.Entities[1].CaseID)
		require.Len(t, result.Relationships, 1)
		assert.Equal(t, "r1", result.Relationships[0].ID)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	})

	t.Run("Should fail before network I/O when case id is missing", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{})
		_, err := client.QueryCase(context.Background(), domain.CaseKey{ClientID: "client-abc"}, "q", domain.SearchTypeLocal, 10)

		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, apperrors.CodeMissingCaseID, apperrors.CodeOf(err))
		assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
	})
}

func TestRetryBehavior(t *testing.T) {
	t.Run("Should retry transient faults and succeed", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&requests, 1)
			if n < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(domain.QueryResult{Confidence: 0.5})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{MaxRetries: 3})
		result, err := client.QueryCase(context.Background(), testKey(), "q", domain.SearchTypeHybrid, 5)

		require.NoError(t, err)
		assert.Equal(t, 0.5, result.Confidence)
		assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
	})

	t.Run("Should surface unavailable after exhausting retries", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{MaxRetries: 2})
		_, err := client.QueryCase(context.Background(), testKey(), "q", domain.SearchTypeLocal, 5)

		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
		assert.Equal(t, apperrors.CodeUpstreamUnavailable, apperrors.CodeOf(err))
		assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
	})

	t.Run("Should not retry upstream rejections", func(t *testing.T) {
		var requests int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail":"bad query"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{MaxRetries: 3})
		_, err := client.QueryCase(context.Background(), testKey(), "q", domain.SearchTypeLocal, 5)

		require.Error(t, err)
		assert.True(t, apperrors.IsRejected(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("Should fail fast while open and recover after the open window", func(t *testing.T) {
		var requests int32
		var healthy int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			if atomic.LoadInt32(&healthy) == 0 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(domain.QueryResult{Confidence: 1})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{
			MaxRetries:              0,
			BreakerFailureThreshold: 1,
			BreakerOpenDuration:     50 * time.Millisecond,
		})

		// First call exhausts its (zero) retries and trips the breaker.
		_, err := client.QueryCase(context.Background(), testKey(), "q", domain.SearchTypeLocal, 5)
		require.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

		// While open the breaker answers without touching the network.
		_, err = client.QueryCase(context.Background(), testKey(), "q", domain.SearchTypeLocal, 5)
		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

		// After the open window a single half-open probe goes through.
		atomic.StoreInt32(&healthy, 1)
		time.Sleep(80 * time.Millisecond)

		result, err := client.QueryCase(context.Background(), testKey(), "q", domain.SearchTypeLocal, 5)
		require.NoError(t, err)
		assert.Equal(t, float64(1), result.Confidence)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	})
}

func TestListCaseEntities(t *testing.T) {
	t.Run("Should pass filters as query parameters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/cases/case-123/entities", r.URL.Path)
			assert.Equal(t, "client-abc", r.URL.Query().Get("client_id"))
			assert.Equal(t, domain.EntityTypeParty, r.URL.Query().Get("type"))
			assert.Equal(t, "0.5", r.URL.Query().Get("min_confidence"))
			assert.Equal(t, "25", r.URL.Query().Get("limit"))

			json.NewEncoder(w).Encode(entityListResponse{
				Entities: []domain.Entity{
					{ID: "e1", CaseID: "case-123", Type: domain.EntityTypeParty, Name: "Acme Corp", Confidence: 0.9},
					{ID: "e2", CaseID: "other", Type: domain.EntityTypeParty, Name: "Leaked", Confidence: 0.9},
				},
				Total: 2,
			})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{})
		entities, err := client.ListCaseEntities(context.Background(), testKey(), ports.EntityFilter{
			Type:          domain.EntityTypeParty,
			MinConfidence: 0.5,
			Limit:         25,
		})

		require.NoError(t, err)
		require.Len(t, entities, 1)
		assert.Equal(t, "e1", entities[0].ID)
	})
}

func TestResearch(t *testing.T) {
	t.Run("Should tag cross-case results with the querying case", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/research", r.URL.Path)

			var req researchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "client-abc", req.ClientID)
			assert.Equal(t, "HYBRID", req.SearchType)
			assert.Equal(t, "CA", req.Jurisdiction)

			json.NewEncoder(w).Encode(domain.QueryResult{
				Entities: []domain.Entity{
					{ID: "p1", CaseID: "precedent-77", Type: domain.EntityTypeCaseCitation, Name: "Smith v. Jones", Confidence: 0.9},
					{ID: "p2", CaseID: "", Type: domain.EntityTypeLegalDoctrine, Name: "Estoppel", Confidence: 0.8},
				},
			})
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{})
		result, err := client.Research(context.Background(), testKey(), "similar outcomes", "CA", domain.SearchTypeHybrid)

		require.NoError(t, err)
		require.Len(t, result.Entities, 2)
		assert.Equal(t, "case-123", result.Entities[0].CaseID)
		assert.Equal(t, "precedent-77", result.Entities[0].Properties["source_case_id"])
		assert.Equal(t, "case-123", result.Entities[1].CaseID)
		_, hasSource := result.Entities[1].Properties["source_case_id"]
		assert.False(t, hasSource)
	})

	t.Run("Should reject unsupported search types", func(t *testing.T) {
		client := newTestClient(t, "http://unused", config.Graph{})
		_, err := client.Research(context.Background(), testKey(), "q", "", domain.SearchTypeLocal)

		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestHealth(t *testing.T) {
	t.Run("Should succeed against a healthy service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, config.Graph{})
		assert.NoError(t, client.Health(context.Background()))
	})

	t.Run("Should report unavailable when the service is down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := newTestClient(t, server.URL, config.Graph{})
		err := client.Health(context.Background())

		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
	})
}

func TestRetryDelay(t *testing.T) {
	cfg := DefaultRetryConfig()

	for attempt := 0; attempt < 5; attempt++ {
		d := cfg.delay(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, cfg.MaxDelay)
	}
}
