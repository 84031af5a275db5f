// Package dto defines the wire shapes of the context API: request structs
// with declarative validation and the response envelopes handlers emit.
package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report violations by JSON field name, not Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request against its struct tags and reports the first
// violation in a client-readable form.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if errors.As(err, &violations) && len(violations) > 0 {
		return errors.New(describe(violations[0]))
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		return fe.Field() + " must have at least " + fe.Param() + " items"
	case "max":
		return fe.Field() + " must have at most " + fe.Param() + " items"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// RetrieveContextRequest asks for an assembled context. Scope defaults to
// standard when empty; an explicit dimension list overrides the scope.
type RetrieveContextRequest struct {
	ClientID          string   `json:"client_id" validate:"required"`
	CaseID            string   `json:"case_id" validate:"required"`
	Scope             string   `json:"scope" validate:"omitempty,oneof=minimal standard comprehensive"`
	IncludeDimensions []string `json:"include_dimensions" validate:"omitempty,max=5,dive,required"`
	UseCache          *bool    `json:"use_cache"`
}

// CacheEnabled resolves the use_cache flag; omitted means true.
func (r *RetrieveContextRequest) CacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}

// RetrieveDimensionRequest asks for a single dimension, bypassing the cache.
type RetrieveDimensionRequest struct {
	ClientID  string `json:"client_id" validate:"required"`
	CaseID    string `json:"case_id" validate:"required"`
	Dimension string `json:"dimension" validate:"required"`
}

// RefreshContextRequest forces a rebuild of the cached context.
type RefreshContextRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	CaseID   string `json:"case_id" validate:"required"`
	Scope    string `json:"scope" validate:"omitempty,oneof=minimal standard comprehensive"`
}

// BatchRetrieveRequest assembles contexts for several cases of one client.
type BatchRetrieveRequest struct {
	ClientID string   `json:"client_id" validate:"required"`
	CaseIDs  []string `json:"case_ids" validate:"required,min=1,max=50,dive,required"`
	Scope    string   `json:"scope" validate:"omitempty,oneof=minimal standard comprehensive"`
}

// WarmupRequest pre-builds contexts so later retrievals hit the cache.
type WarmupRequest struct {
	ClientID string   `json:"client_id" validate:"required"`
	CaseIDs  []string `json:"case_ids" validate:"required,min=1,max=50,dive,required"`
	Scope    string   `json:"scope" validate:"omitempty,oneof=minimal standard comprehensive"`
}
