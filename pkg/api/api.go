// Package api holds the HTTP contract of the intake backend: the OpenAPI
// document requests are validated against and the response bodies.
package api

import (
	_ "embed"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
)

// OpenAPIDocument is the embedded OpenAPI 3 description of the API
//
//go:embed openapi.yaml
var OpenAPIDocument []byte

// Error codes of ErrorResponse
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeTimeout     = "TIMEOUT"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// AnswerRequest defines model for AnswerRequest.
type AnswerRequest struct {
	Value string `json:"value"`
}

// CatalogResponse defines model for CatalogResponse.
type CatalogResponse struct {
	Sections []intake.Section `json:"sections"`
}

// SessionResponse defines model for SessionResponse.
type SessionResponse struct {
	SessionId     openapi_types.UUID    `json:"session_id"`
	State         intake.Snapshot       `json:"state"`
	Notifications []intake.Notification `json:"notifications"`
	Focus         *string               `json:"focus,omitempty"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}
