package analyzers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// WhyAnalyzer assembles the strategic picture of a case: supporting theories,
// risks, relevant precedent, comparable outcomes, and the assigned judge's
// ruling patterns. This dimension is pure graph reasoning with no relational
// fallback; individual sub-queries may fail and zero out their share of the
// score, and the dimension as a whole fails only when every attempted
// sub-query fails.
type WhyAnalyzer struct {
	graph  ports.GraphQuerier
	store  ports.CaseStore
	logger *zap.Logger
}

// NewWhyAnalyzer creates the WHY analyzer.
func NewWhyAnalyzer(graph ports.GraphQuerier, store ports.CaseStore, logger *zap.Logger) *WhyAnalyzer {
	return &WhyAnalyzer{graph: graph, store: store, logger: logger.Named("why")}
}

// Dimension implements Analyzer.
func (a *WhyAnalyzer) Dimension() domain.DimensionName { return domain.DimensionWhy }

// Analyze implements Analyzer.
func (a *WhyAnalyzer) Analyze(ctx context.Context, key domain.CaseKey) (*domain.DimensionResult, error) {
	judge, jurisdiction, err := a.caseFacts(ctx, key)
	if err != nil {
		return nil, err
	}

	attempted := 0
	failed := 0
	var firstErr error
	run := func(name string, call func() (*domain.QueryResult, error)) *domain.QueryResult {
		attempted++
		result, callErr := call()
		if callErr != nil {
			failed++
			if firstErr == nil {
				firstErr = callErr
			}
			a.logger.Warn("strategy sub-query failed",
				zap.String("case", key.String()),
				zap.String("query", name),
				zap.Error(callErr))
			return nil
		}
		return result
	}

	theories := run("theories", func() (*domain.QueryResult, error) {
		return a.graph.QueryCase(ctx, key,
			"What legal theories support this case, and what are the strongest arguments for each side?",
			domain.SearchTypeLocal, queryResultLimit)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	risks := run("risks", func() (*domain.QueryResult, error) {
		return a.graph.QueryCase(ctx, key,
			"What are the main risks and weaknesses of this case?",
			domain.SearchTypeLocal, queryResultLimit)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	precedents := run("precedents", func() (*domain.QueryResult, error) {
		return a.graph.Research(ctx, key,
			a.precedentQuery(theories),
			jurisdiction, domain.SearchTypeGlobal)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := run("outcomes", func() (*domain.QueryResult, error) {
		return a.graph.Research(ctx, key,
			"How have similar cases been resolved, and what outcomes should be expected?",
			jurisdiction, domain.SearchTypeHybrid)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var judgePatterns *domain.QueryResult
	if judge != "" {
		judgePatterns = run("judge_patterns", func() (*domain.QueryResult, error) {
			return a.graph.Research(ctx, key,
				fmt.Sprintf("What are the ruling patterns and tendencies of judge %s?", judge),
				jurisdiction, domain.SearchTypeGlobal)
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if attempted > 0 && failed == attempted {
		return nil, firstErr
	}

	theoryEntities := resultEntities(theories)
	precedentEntities := resultEntities(precedents)

	var completeness float64
	if len(theoryEntities) >= 2 {
		completeness += 0.20
	}
	completeness += scaled(len(precedentEntities), 10) * 0.30
	if answered(risks) {
		completeness += 0.20
	}
	if answered(judgePatterns) {
		completeness += 0.15
	}
	if answered(outcomes) {
		completeness += 0.15
	}

	data := map[string]any{
		"theories":         theoryEntities,
		"theory_analysis":  answerOf(theories),
		"risks":            answerOf(risks),
		"precedents":       precedentEntities,
		"similar_outcomes": answerOf(outcomes),
		"judge_patterns":   answerOf(judgePatterns),
		"precedent_count":  len(precedentEntities),
		"source":           "graph",
	}

	confidence, dataPoints := summarize(theories, risks, precedents, outcomes, judgePatterns)
	return newResult(data, completeness, confidence, dataPoints), nil
}

// caseFacts fetches the judge name and jurisdiction used to shape research
// queries. A missing case is fatal; any other metadata failure leaves the
// research queries unscoped.
func (a *WhyAnalyzer) caseFacts(ctx context.Context, key domain.CaseKey) (judge, jurisdiction string, err error) {
	meta, err := a.store.GetCaseMetadata(ctx, key)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", "", err
		}
		a.logger.Warn("metadata read failed, research queries run unscoped",
			zap.String("case", key.String()), zap.Error(err))
		return "", "", nil
	}
	return meta.Judge, meta.Jurisdiction, nil
}

// precedentQuery seeds the precedent search with the case's own theories
// when the theories sub-query produced any.
func (a *WhyAnalyzer) precedentQuery(theories *domain.QueryResult) string {
	entities := resultEntities(theories)
	if len(entities) == 0 {
		return "What precedent cases are most relevant to this dispute?"
	}
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.Name != "" {
			names = append(names, e.Name)
		}
	}
	if len(names) == 0 {
		return "What precedent cases are most relevant to this dispute?"
	}
	return fmt.Sprintf("What precedent cases are most relevant to claims of %s?", strings.Join(names, ", "))
}

func resultEntities(result *domain.QueryResult) []domain.Entity {
	if result == nil {
		return []domain.Entity{}
	}
	entities := result.Entities
	if entities == nil {
		entities = []domain.Entity{}
	}
	domain.SortEntities(entities)
	return entities
}

func answered(result *domain.QueryResult) bool {
	return result != nil && strings.TrimSpace(result.Answer) != ""
}

func answerOf(result *domain.QueryResult) string {
	if result == nil {
		return ""
	}
	return strings.TrimSpace(result.Answer)
}

// summarize averages sub-result confidences and counts returned data points
// across the successful sub-queries.
func summarize(results ...*domain.QueryResult) (float64, int) {
	var sum float64
	n := 0
	points := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		sum += r.Confidence
		n++
		points += len(r.Entities) + len(r.Relationships)
		if strings.TrimSpace(r.Answer) != "" {
			points++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), points
}
