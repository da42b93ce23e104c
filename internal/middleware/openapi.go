package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// OpenAPIValidator checks requests against an OpenAPI 3 document
type OpenAPIValidator struct {
	router routers.Router
	logger *zap.Logger
}

// NewOpenAPIValidator loads and validates the document
func NewOpenAPIValidator(document []byte, logger *zap.Logger) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{router: router, logger: logger}, nil
}

// Middleware rejects requests that do not match the document with a 400.
// Routes the document does not describe pass through untouched.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route, pathParams, err := v.router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(context.WithoutCancel(c.Request.Context()), input); err != nil {
			details := err.Error()
			v.logger.Warn("request does not match API schema",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("details", details),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{
				Code:    api.CodeValidation,
				Message: "Request does not match the API schema",
				Details: &details,
			})
			return
		}

		c.Next()
	}
}
