package analyzers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// whatEntityTypes are the subject-matter entity types.
var whatEntityTypes = []string{
	domain.EntityTypeLegalIssue,
	domain.EntityTypeCauseOfAction,
	domain.EntityTypeStatuteCitation,
	domain.EntityTypeCaseCitation,
	domain.EntityTypeLegalDoctrine,
}

// WhatAnalyzer assembles the subject matter of a case: legal issues, causes
// of action, cited statutes and cases, doctrines, and the primary legal
// theory. Graph-first with a case store fallback, like WHO, though the
// fallback cannot run the theory query and instead picks the strongest cause
// or doctrine.
type WhatAnalyzer struct {
	graph  ports.GraphQuerier
	store  ports.CaseStore
	logger *zap.Logger
}

// NewWhatAnalyzer creates the WHAT analyzer.
func NewWhatAnalyzer(graph ports.GraphQuerier, store ports.CaseStore, logger *zap.Logger) *WhatAnalyzer {
	return &WhatAnalyzer{graph: graph, store: store, logger: logger.Named("what")}
}

// Dimension implements Analyzer.
func (a *WhatAnalyzer) Dimension() domain.DimensionName { return domain.DimensionWhat }

// Analyze implements Analyzer.
func (a *WhatAnalyzer) Analyze(ctx context.Context, key domain.CaseKey) (*domain.DimensionResult, error) {
	byType, theory, source, err := a.gather(ctx, key)
	if err != nil {
		return nil, err
	}

	issues := byType[domain.EntityTypeLegalIssue]
	causes := byType[domain.EntityTypeCauseOfAction]
	statutes := byType[domain.EntityTypeStatuteCitation]
	caseCites := byType[domain.EntityTypeCaseCitation]
	doctrines := byType[domain.EntityTypeLegalDoctrine]

	citationCount := len(statutes) + len(caseCites)

	var completeness float64
	if len(issues) >= 3 {
		completeness += 0.25
	}
	if len(causes) >= 1 {
		completeness += 0.25
	}
	completeness += scaled(citationCount, 10) * 0.30
	if theory != "" {
		completeness += 0.20
	}

	all := make([]domain.Entity, 0, len(issues)+len(causes)+citationCount+len(doctrines))
	all = append(all, issues...)
	all = append(all, causes...)
	all = append(all, statutes...)
	all = append(all, caseCites...)
	all = append(all, doctrines...)

	data := map[string]any{
		"legal_issues":      issues,
		"causes_of_action":  causes,
		"statute_citations": statutes,
		"case_citations":    caseCites,
		"doctrines":         doctrines,
		"primary_theory":    theory,
		"citation_count":    citationCount,
		"source":            source,
	}

	return newResult(data, completeness, domain.MeanConfidence(all), len(all)), nil
}

func (a *WhatAnalyzer) gather(ctx context.Context, key domain.CaseKey) (map[string][]domain.Entity, string, string, error) {
	byType := make(map[string][]domain.Entity, len(whatEntityTypes))

	for _, entityType := range whatEntityTypes {
		entities, err := a.graph.ListCaseEntities(ctx, key, ports.EntityFilter{
			Type:  entityType,
			Limit: entityListLimit,
		})
		if err != nil {
			if apperrors.IsUnavailable(err) {
				return a.gatherFromStore(ctx, key)
			}
			return nil, "", "", err
		}
		domain.SortEntities(entities)
		byType[entityType] = entities
	}

	theory, err := a.queryTheory(ctx, key)
	if err != nil {
		if apperrors.IsUnavailable(err) {
			return a.gatherFromStore(ctx, key)
		}
		return nil, "", "", err
	}

	return byType, theory, "graph", nil
}

// queryTheory asks the graph for the case's primary legal theory via a
// case-local search and takes the answer text.
func (a *WhatAnalyzer) queryTheory(ctx context.Context, key domain.CaseKey) (string, error) {
	result, err := a.graph.QueryCase(ctx, key,
		"What is the primary legal theory of this case?",
		domain.SearchTypeLocal, queryResultLimit)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Answer), nil
}

// gatherFromStore serves the degraded path. There is no query engine behind
// the case store, so the primary theory falls back to the strongest cause of
// action, then the strongest doctrine.
func (a *WhatAnalyzer) gatherFromStore(ctx context.Context, key domain.CaseKey) (map[string][]domain.Entity, string, string, error) {
	a.logger.Warn("graph unavailable, sourcing subject matter from case store",
		zap.String("case", key.String()))

	entities, err := a.store.ListEntities(ctx, key, whatEntityTypes, entityListLimit*len(whatEntityTypes))
	if err != nil {
		return nil, "", "", err
	}

	byType := make(map[string][]domain.Entity, len(whatEntityTypes))
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e)
	}
	for _, entityType := range whatEntityTypes {
		domain.SortEntities(byType[entityType])
	}

	theory := ""
	if causes := byType[domain.EntityTypeCauseOfAction]; len(causes) > 0 {
		theory = causes[0].Name
	} else if doctrines := byType[domain.EntityTypeLegalDoctrine]; len(doctrines) > 0 {
		theory = doctrines[0].Name
	}

	return byType, theory, "casedb", nil
}
