// Package domain holds the core types of the context engine: case keys,
// scopes, dimensions, context records, and the entities exchanged with the
// knowledge graph and the case store. Types here carry no I/O and no
// framework dependencies.
package domain

import "fmt"

// CaseKey identifies a case within a client tenant. It is the isolation
// boundary: every upstream query and every cache entry is tagged with it.
type CaseKey struct {
	ClientID string `json:"client_id"`
	CaseID   string `json:"case_id"`
}

// NewCaseKey constructs a validated case key.
func NewCaseKey(clientID, caseID string) (CaseKey, error) {
	key := CaseKey{ClientID: clientID, CaseID: caseID}
	if err := key.Validate(); err != nil {
		return CaseKey{}, err
	}
	return key, nil
}

// Validate checks that both components are present.
func (k CaseKey) Validate() error {
	if k.ClientID == "" {
		return ErrEmptyClientID
	}
	if k.CaseID == "" {
		return ErrEmptyCaseID
	}
	return nil
}

// String renders the key as "clientID/caseID" for logs and breaker names.
func (k CaseKey) String() string {
	return fmt.Sprintf("%s/%s", k.ClientID, k.CaseID)
}
