package auth

import (
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SupabaseValidator validates access tokens against a Supabase Auth project.
// Used when the platform delegates identity to hosted auth instead of
// verifying JWTs locally.
type SupabaseValidator struct {
	client *supabase.Client
}

// NewSupabaseValidator creates a validator backed by the project's service
// role key.
func NewSupabaseValidator(projectURL, serviceRoleKey string) (*SupabaseValidator, error) {
	if projectURL == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("supabase url and service role key are required")
	}

	client, err := supabase.NewClient(projectURL, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseValidator{client: client}, nil
}

// Authenticate introspects the token with Supabase Auth and returns the
// caller's principal. The client_id claim is read from app_metadata when the
// project stamps tenants there.
func (v *SupabaseValidator) Authenticate(token string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	// GetUser chained with WithToken performs the introspection request.
	user, err := v.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p := &Principal{
		UserID: user.ID.String(),
		Email:  user.Email,
	}
	if clientID, ok := user.AppMetadata["client_id"].(string); ok {
		p.ClientID = clientID
	}
	return p, nil
}
