package handler

import (
	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/service"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
)

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// optionalString returns nil for the empty string
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// uuidToString converts types.UUID to string
func uuidToString(u openapi_types.UUID) string {
	return u.String()
}

// requestMeta extracts the caller details recorded in audit entries
func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// abortWithError writes the standard error body
func abortWithError(c *gin.Context, status int, code, message string, err error) {
	resp := api.ErrorResponse{
		Code:    code,
		Message: message,
	}
	if err != nil {
		resp.Details = stringPtr(err.Error())
	}
	c.AbortWithStatusJSON(status, resp)
}
