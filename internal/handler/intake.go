package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/intake"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/service"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
	"go.uber.org/zap"
)

const (
	defaultWaitTimeout = 30 * time.Second
	maxWaitTimeout     = 5 * time.Minute
)

// IntakeHandler exposes intake sessions over HTTP
type IntakeHandler struct {
	service  *service.IntakeService
	logger   *zap.Logger
	upgrader websocket.Upgrader
	stream   StreamOptions
}

// NewIntakeHandler creates a new IntakeHandler. allowedOrigins limits which
// browser origins may open a state stream; "*" allows any.
func NewIntakeHandler(service *service.IntakeService, allowedOrigins []string, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		stream: DefaultStreamOptions(),
	}
}

// GetIntakeCatalog returns the questions of every section
func (h *IntakeHandler) GetIntakeCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, api.CatalogResponse{Sections: h.service.Catalog().Sections()})
}

// PostIntakeSession starts a new assessment
func (h *IntakeHandler) PostIntakeSession(c *gin.Context) {
	session, err := h.service.Create(c.Request.Context(), requestMeta(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionView(session))
}

// GetIntakeSession returns the session state and any pending notifications
func (h *IntakeHandler) GetIntakeSession(c *gin.Context, sessionId openapi_types.UUID) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

// DeleteIntakeSession discards a session
func (h *IntakeHandler) DeleteIntakeSession(c *gin.Context, sessionId openapi_types.UUID) {
	if err := h.service.Delete(c.Request.Context(), uuidToString(sessionId), requestMeta(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PutIntakeAnswer records the raw answer to one question
func (h *IntakeHandler) PutIntakeAnswer(c *gin.Context, sessionId openapi_types.UUID, questionId string) {
	var req api.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, api.CodeValidation, "Invalid request body", err)
		return
	}

	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	if err := session.Controller().SetAnswer(questionId, req.Value); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

// PostIntakeTouch marks a question as visited so its error becomes visible
func (h *IntakeHandler) PostIntakeTouch(c *gin.Context, sessionId openapi_types.UUID, questionId string) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	if err := session.Controller().Touch(questionId); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

// PostIntakeAdvance validates the section and moves on, submitting after the
// last one. An incomplete section still answers 200; the view carries the
// notification and focus target.
func (h *IntakeHandler) PostIntakeAdvance(c *gin.Context, sessionId openapi_types.UUID) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	if err := session.Controller().Advance(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

// PostIntakeRetreat moves back one section
func (h *IntakeHandler) PostIntakeRetreat(c *gin.Context, sessionId openapi_types.UUID) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	session.Controller().Retreat()
	c.JSON(http.StatusOK, sessionView(session))
}

// PostIntakeRestart starts the assessment over
func (h *IntakeHandler) PostIntakeRestart(c *gin.Context, sessionId openapi_types.UUID) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	session.Controller().Restart()
	c.JSON(http.StatusOK, sessionView(session))
}

// PostIntakeRetry re-submits a failed assessment
func (h *IntakeHandler) PostIntakeRetry(c *gin.Context, sessionId openapi_types.UUID) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}
	if err := session.Controller().Retry(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

// GetIntakeWait blocks until no submission is in flight
func (h *IntakeHandler) GetIntakeWait(c *gin.Context, sessionId openapi_types.UUID, params api.GetIntakeWaitParams) {
	timeout := defaultWaitTimeout
	if params.Timeout != nil {
		d, err := time.ParseDuration(*params.Timeout)
		if err != nil || d <= 0 {
			abortWithError(c, http.StatusBadRequest, api.CodeValidation, "Invalid timeout", err)
			return
		}
		timeout = min(d, maxWaitTimeout)
	}

	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if _, err := session.Controller().Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			abortWithError(c, http.StatusGatewayTimeout, api.CodeTimeout, "Submission still in progress", nil)
			return
		}
		abortWithError(c, http.StatusInternalServerError, api.CodeInternal, "Failed to wait for submission", err)
		return
	}
	c.JSON(http.StatusOK, sessionView(session))
}

func (h *IntakeHandler) lookup(c *gin.Context, sessionId openapi_types.UUID) (*service.IntakeSession, bool) {
	session, err := h.service.Get(uuidToString(sessionId))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return session, true
}

func (h *IntakeHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		abortWithError(c, http.StatusNotFound, api.CodeNotFound, "Intake session not found", nil)
	case errors.Is(err, service.ErrTooManySessions):
		abortWithError(c, http.StatusServiceUnavailable, api.CodeUnavailable, "Too many active intake sessions", nil)
	case errors.Is(err, intake.ErrUnknownQuestion), errors.Is(err, intake.ErrInvalidChoice):
		abortWithError(c, http.StatusBadRequest, api.CodeValidation, "Invalid answer", err)
	case errors.Is(err, intake.ErrNotEditable),
		errors.Is(err, intake.ErrSubmissionInFlight),
		errors.Is(err, intake.ErrAttemptFinished),
		errors.Is(err, intake.ErrNothingToRetry):
		abortWithError(c, http.StatusConflict, api.CodeConflict, err.Error(), nil)
	default:
		h.logger.Error("intake request failed", zap.Error(err))
		c.Error(err)
		abortWithError(c, http.StatusInternalServerError, api.CodeInternal, "Intake request failed", err)
	}
}

// sessionView combines the state with the notifications raised since the
// last view
func sessionView(session *service.IntakeSession) api.SessionResponse {
	return viewOf(session, session.Controller().Snapshot())
}

func viewOf(session *service.IntakeSession, state intake.Snapshot) api.SessionResponse {
	notes, focus := session.Drain()
	if notes == nil {
		notes = []intake.Notification{}
	}

	id, _ := uuid.Parse(session.ID)

	return api.SessionResponse{
		SessionId:     id,
		State:         state,
		Notifications: notes,
		Focus:         optionalString(focus),
	}
}
