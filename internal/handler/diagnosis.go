package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/raredx/apps/backend/internal/service"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// DiagnosisHandler implements the diagnosis endpoint
type DiagnosisHandler struct {
	service *service.DiagnosisService
	logger  *zap.Logger
}

// NewDiagnosisHandler creates a new DiagnosisHandler
func NewDiagnosisHandler(service *service.DiagnosisService, logger *zap.Logger) *DiagnosisHandler {
	return &DiagnosisHandler{
		service: service,
		logger:  logger,
	}
}

// PostDiagnose ranks rare diseases matching the submitted intake
func (h *DiagnosisHandler) PostDiagnose(c *gin.Context) {
	var patient map[string]any
	if err := c.ShouldBindJSON(&patient); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, api.CodeValidation, "Invalid request body", err)
		return
	}
	if patient == nil {
		abortWithError(c, http.StatusBadRequest, api.CodeValidation, "Invalid request body", nil)
		return
	}

	result, err := h.service.Diagnose(c.Request.Context(), patient, requestMeta(c))
	if err != nil {
		h.logger.Error("diagnosis failed", zap.Error(err))
		c.Error(err)
		c.JSON(http.StatusInternalServerError, model.DiagnosisResponse{
			Success: false,
			Message: "Diagnosis failed",
			Error:   err.Error(),
		})
		return
	}

	h.logger.Info("diagnosis served", zap.Int("candidates", len(result.Candidates)))
	c.JSON(http.StatusOK, model.DiagnosisResponse{
		Success: true,
		Data:    result,
	})
}
