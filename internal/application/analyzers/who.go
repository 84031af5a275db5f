package analyzers

import (
	"context"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// whoEntityTypes are the participant entity types, queried one filtered call
// per type.
var whoEntityTypes = []string{
	domain.EntityTypeParty,
	domain.EntityTypeJudge,
	domain.EntityTypeAttorney,
	domain.EntityTypeWitness,
}

// WhoAnalyzer assembles the participants of a case: parties, the judge,
// counsel, witnesses, and the representation map between them. The knowledge
// graph is the primary source; when it is unavailable the analyzer degrades
// to the case store's entity rows, deriving representation edges from
// attorney properties.
type WhoAnalyzer struct {
	graph  ports.GraphQuerier
	store  ports.CaseStore
	logger *zap.Logger
}

// NewWhoAnalyzer creates the WHO analyzer.
func NewWhoAnalyzer(graph ports.GraphQuerier, store ports.CaseStore, logger *zap.Logger) *WhoAnalyzer {
	return &WhoAnalyzer{graph: graph, store: store, logger: logger.Named("who")}
}

// Dimension implements Analyzer.
func (a *WhoAnalyzer) Dimension() domain.DimensionName { return domain.DimensionWho }

// Analyze implements Analyzer.
func (a *WhoAnalyzer) Analyze(ctx context.Context, key domain.CaseKey) (*domain.DimensionResult, error) {
	byType, relationships, source, err := a.gather(ctx, key)
	if err != nil {
		return nil, err
	}

	parties := byType[domain.EntityTypeParty]
	judges := byType[domain.EntityTypeJudge]
	attorneys := byType[domain.EntityTypeAttorney]
	witnesses := byType[domain.EntityTypeWitness]

	var represents, opposes []domain.Relationship
	for _, r := range relationships {
		switch r.Type {
		case domain.RelationshipRepresents:
			represents = append(represents, r)
		case domain.RelationshipOpposes:
			opposes = append(opposes, r)
		}
	}

	// A party has counsel when a REPRESENTS edge points at it.
	represented := make(map[string]bool, len(represents))
	for _, r := range represents {
		represented[r.TargetID] = true
	}
	unrepresented := make([]string, 0)
	for _, p := range parties {
		if !represented[p.ID] {
			unrepresented = append(unrepresented, p.ID)
		}
	}

	var completeness float64
	if len(parties) >= 2 {
		completeness += 0.30
	}
	if len(parties) > 0 && len(unrepresented) == 0 {
		completeness += 0.20
	}
	if len(judges) >= 1 {
		completeness += 0.20
	}
	if len(witnesses) >= 1 {
		completeness += 0.10
	}
	if len(represents)+len(opposes) > 0 {
		completeness += 0.20
	}

	all := make([]domain.Entity, 0, len(parties)+len(judges)+len(attorneys)+len(witnesses))
	all = append(all, parties...)
	all = append(all, judges...)
	all = append(all, attorneys...)
	all = append(all, witnesses...)

	data := map[string]any{
		"parties":        parties,
		"judges":         judges,
		"attorneys":      attorneys,
		"witnesses":      witnesses,
		"representation": represents,
		"opposition":     opposes,
		"party_count":    len(parties),
		"witness_count":  len(witnesses),
		"unrepresented":  unrepresented,
		"source":         source,
	}

	dataPoints := len(all) + len(relationships)
	return newResult(data, completeness, domain.MeanConfidence(all), dataPoints), nil
}

// gather pulls participants from the graph, falling back to the case store
// when the graph cannot serve.
func (a *WhoAnalyzer) gather(ctx context.Context, key domain.CaseKey) (map[string][]domain.Entity, []domain.Relationship, string, error) {
	byType := make(map[string][]domain.Entity, len(whoEntityTypes))

	for _, entityType := range whoEntityTypes {
		entities, err := a.graph.ListCaseEntities(ctx, key, ports.EntityFilter{
			Type:  entityType,
			Limit: entityListLimit,
		})
		if err != nil {
			if apperrors.IsUnavailable(err) {
				return a.gatherFromStore(ctx, key)
			}
			return nil, nil, "", err
		}
		domain.SortEntities(entities)
		byType[entityType] = entities
	}

	relationships, err := a.graph.ListCaseRelationships(ctx, key, ports.RelationshipFilter{})
	if err != nil {
		if apperrors.IsUnavailable(err) {
			return a.gatherFromStore(ctx, key)
		}
		return nil, nil, "", err
	}

	return byType, relationships, "graph", nil
}

// gatherFromStore serves the degraded path: participant rows come from the
// case store and representation edges are reconstructed from each attorney's
// "represents" property.
func (a *WhoAnalyzer) gatherFromStore(ctx context.Context, key domain.CaseKey) (map[string][]domain.Entity, []domain.Relationship, string, error) {
	a.logger.Warn("graph unavailable, sourcing participants from case store",
		zap.String("case", key.String()))

	entities, err := a.store.ListEntities(ctx, key, whoEntityTypes, entityListLimit*len(whoEntityTypes))
	if err != nil {
		return nil, nil, "", err
	}

	byType := make(map[string][]domain.Entity, len(whoEntityTypes))
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e)
	}
	for _, entityType := range whoEntityTypes {
		domain.SortEntities(byType[entityType])
	}

	relationships := make([]domain.Relationship, 0)
	for _, attorney := range byType[domain.EntityTypeAttorney] {
		for _, partyID := range stringsFromProperty(attorney.Properties["represents"]) {
			relationships = append(relationships, domain.Relationship{
				ID:         attorney.ID + ":" + partyID,
				CaseID:     key.CaseID,
				Type:       domain.RelationshipRepresents,
				SourceID:   attorney.ID,
				TargetID:   partyID,
				Confidence: attorney.Confidence,
			})
		}
	}

	return byType, relationships, "casedb", nil
}

// stringsFromProperty coerces a property value into a string slice; JSON
// decoding yields []any, seeded fixtures may use []string or a bare string.
func stringsFromProperty(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
