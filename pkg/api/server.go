package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// GetIntakeWaitParams defines parameters for GetIntakeWait.
type GetIntakeWaitParams struct {
	Timeout *string `form:"timeout,omitempty" json:"timeout,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (POST /api/diagnose)
	PostDiagnose(c *gin.Context)
	// (GET /api/v1/intake/catalog)
	GetIntakeCatalog(c *gin.Context)
	// (POST /api/v1/intake/sessions)
	PostIntakeSession(c *gin.Context)
	// (GET /api/v1/intake/sessions/{sessionId})
	GetIntakeSession(c *gin.Context, sessionId openapi_types.UUID)
	// (DELETE /api/v1/intake/sessions/{sessionId})
	DeleteIntakeSession(c *gin.Context, sessionId openapi_types.UUID)
	// (PUT /api/v1/intake/sessions/{sessionId}/answers/{questionId})
	PutIntakeAnswer(c *gin.Context, sessionId openapi_types.UUID, questionId string)
	// (POST /api/v1/intake/sessions/{sessionId}/touch/{questionId})
	PostIntakeTouch(c *gin.Context, sessionId openapi_types.UUID, questionId string)
	// (POST /api/v1/intake/sessions/{sessionId}/advance)
	PostIntakeAdvance(c *gin.Context, sessionId openapi_types.UUID)
	// (POST /api/v1/intake/sessions/{sessionId}/retreat)
	PostIntakeRetreat(c *gin.Context, sessionId openapi_types.UUID)
	// (POST /api/v1/intake/sessions/{sessionId}/restart)
	PostIntakeRestart(c *gin.Context, sessionId openapi_types.UUID)
	// (POST /api/v1/intake/sessions/{sessionId}/retry)
	PostIntakeRetry(c *gin.Context, sessionId openapi_types.UUID)
	// (GET /api/v1/intake/sessions/{sessionId}/wait)
	GetIntakeWait(c *gin.Context, sessionId openapi_types.UUID, params GetIntakeWaitParams)
	// (GET /api/v1/intake/sessions/{sessionId}/stream)
	GetIntakeStream(c *gin.Context, sessionId openapi_types.UUID)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

func (siw *ServerInterfaceWrapper) runMiddlewares(c *gin.Context) bool {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) bindSessionID(c *gin.Context) (openapi_types.UUID, bool) {
	var sessionId openapi_types.UUID

	err := runtime.BindStyledParameterWithOptions("simple", "sessionId", c.Param("sessionId"), &sessionId, runtime.BindStyledParameterOptions{Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter sessionId: %w", err), http.StatusBadRequest)
		return sessionId, false
	}
	return sessionId, true
}

func (siw *ServerInterfaceWrapper) bindQuestionID(c *gin.Context) (string, bool) {
	var questionId string

	err := runtime.BindStyledParameterWithOptions("simple", "questionId", c.Param("questionId"), &questionId, runtime.BindStyledParameterOptions{Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter questionId: %w", err), http.StatusBadRequest)
		return questionId, false
	}
	return questionId, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetHealth(c)
}

// PostDiagnose operation middleware
func (siw *ServerInterfaceWrapper) PostDiagnose(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostDiagnose(c)
}

// GetIntakeCatalog operation middleware
func (siw *ServerInterfaceWrapper) GetIntakeCatalog(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetIntakeCatalog(c)
}

// PostIntakeSession operation middleware
func (siw *ServerInterfaceWrapper) PostIntakeSession(c *gin.Context) {
	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostIntakeSession(c)
}

// GetIntakeSession operation middleware
func (siw *ServerInterfaceWrapper) GetIntakeSession(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetIntakeSession(c, sessionId)
}

// DeleteIntakeSession operation middleware
func (siw *ServerInterfaceWrapper) DeleteIntakeSession(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.DeleteIntakeSession(c, sessionId)
}

// PutIntakeAnswer operation middleware
func (siw *ServerInterfaceWrapper) PutIntakeAnswer(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok {
		return
	}
	questionId, ok := siw.bindQuestionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PutIntakeAnswer(c, sessionId, questionId)
}

// PostIntakeTouch operation middleware
func (siw *ServerInterfaceWrapper) PostIntakeTouch(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok {
		return
	}
	questionId, ok := siw.bindQuestionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostIntakeTouch(c, sessionId, questionId)
}

// PostIntakeAdvance operation middleware
func (siw *ServerInterfaceWrapper) PostIntakeAdvance(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostIntakeAdvance(c, sessionId)
}

// PostIntakeRetreat operation middleware
func (siw *ServerInterfaceWrapper) PostIntakeRetreat(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostIntakeRetreat(c, sessionId)
}

// PostIntakeRestart operation middleware
func (siw *ServerInterfaceWrapper) PostIntakeRestart(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostIntakeRestart(c, sessionId)
}

// PostIntakeRetry operation middleware
func (siw *ServerInterfaceWrapper) PostIntakeRetry(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.PostIntakeRetry(c, sessionId)
}

// GetIntakeWait operation middleware
func (siw *ServerInterfaceWrapper) GetIntakeWait(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok {
		return
	}

	var params GetIntakeWaitParams

	// ------------- Optional query parameter "timeout" -------------
	err := runtime.BindQueryParameter("form", true, false, "timeout", c.Request.URL.Query(), &params.Timeout)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter timeout: %w", err), http.StatusBadRequest)
		return
	}

	if !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetIntakeWait(c, sessionId, params)
}

// GetIntakeStream operation middleware
func (siw *ServerInterfaceWrapper) GetIntakeStream(c *gin.Context) {
	sessionId, ok := siw.bindSessionID(c)
	if !ok || !siw.runMiddlewares(c) {
		return
	}
	siw.Handler.GetIntakeStream(c, sessionId)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching the OpenAPI document.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			details := err.Error()
			c.JSON(statusCode, ErrorResponse{Code: CodeValidation, Message: "Invalid request parameters", Details: &details})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.POST(options.BaseURL+"/api/diagnose", wrapper.PostDiagnose)
	router.GET(options.BaseURL+"/api/v1/intake/catalog", wrapper.GetIntakeCatalog)
	router.POST(options.BaseURL+"/api/v1/intake/sessions", wrapper.PostIntakeSession)
	router.GET(options.BaseURL+"/api/v1/intake/sessions/:sessionId", wrapper.GetIntakeSession)
	router.DELETE(options.BaseURL+"/api/v1/intake/sessions/:sessionId", wrapper.DeleteIntakeSession)
	router.PUT(options.BaseURL+"/api/v1/intake/sessions/:sessionId/answers/:questionId", wrapper.PutIntakeAnswer)
	router.POST(options.BaseURL+"/api/v1/intake/sessions/:sessionId/touch/:questionId", wrapper.PostIntakeTouch)
	router.POST(options.BaseURL+"/api/v1/intake/sessions/:sessionId/advance", wrapper.PostIntakeAdvance)
	router.POST(options.BaseURL+"/api/v1/intake/sessions/:sessionId/retreat", wrapper.PostIntakeRetreat)
	router.POST(options.BaseURL+"/api/v1/intake/sessions/:sessionId/restart", wrapper.PostIntakeRestart)
	router.POST(options.BaseURL+"/api/v1/intake/sessions/:sessionId/retry", wrapper.PostIntakeRetry)
	router.GET(options.BaseURL+"/api/v1/intake/sessions/:sessionId/wait", wrapper.GetIntakeWait)
	router.GET(options.BaseURL+"/api/v1/intake/sessions/:sessionId/stream", wrapper.GetIntakeStream)
}
