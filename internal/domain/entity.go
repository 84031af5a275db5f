package domain

import "sort"

// Entity type constants as the knowledge graph tags them.
const (
	EntityTypeParty           = "PARTY"
	EntityTypeJudge           = "JUDGE"
	EntityTypeAttorney        = "ATTORNEY"
	EntityTypeWitness         = "WITNESS"
	EntityTypeStatuteCitation = "STATUTE_CITATION"
	EntityTypeCaseCitation    = "CASE_CITATION"
	EntityTypeLegalIssue      = "LEGAL_ISSUE"
	EntityTypeCauseOfAction   = "CAUSE_OF_ACTION"
	EntityTypeLegalDoctrine   = "LEGAL_DOCTRINE"
)

// Relationship type constants.
const (
	RelationshipRepresents = "REPRESENTS"
	RelationshipOpposes    = "OPPOSES"
)

// Entity is a knowledge-graph node scoped to a case.
type Entity struct {
	ID          string         `json:"id"`
	CaseID      string         `json:"case_id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Confidence  float64        `json:"confidence"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Relationship is a typed edge between two case entities.
type Relationship struct {
	ID          string  `json:"id"`
	CaseID      string  `json:"case_id"`
	Type        string  `json:"type"`
	SourceID    string  `json:"source_id"`
	TargetID    string  `json:"target_id"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// SearchType selects the graph traversal strategy for a query.
type SearchType string

const (
	SearchTypeLocal  SearchType = "LOCAL"
	SearchTypeGlobal SearchType = "GLOBAL"
	SearchTypeHybrid SearchType = "HYBRID"
	SearchTypeDrift  SearchType = "DRIFT"
)

// QueryResult is the graph service's answer to a query.
type QueryResult struct {
	Answer        string         `json:"answer,omitempty"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Confidence    float64        `json:"confidence"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// SortEntities orders entities deterministically: confidence descending,
// then ID ascending.
func SortEntities(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		return entities[i].ID < entities[j].ID
	})
}

// MeanConfidence averages entity confidences; zero for an empty list.
func MeanConfidence(entities []Entity) float64 {
	if len(entities) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entities {
		sum += e.Confidence
	}
	return sum / float64(len(entities))
}
