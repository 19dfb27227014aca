package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edu-analytics/student-portal-api/internal/service"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
	"github.com/edu-analytics/student-portal-api/pkg/response"
)

// PredictRequest carries the one user-supplied prediction input.
type PredictRequest struct {
	MedicalCertificate bool `json:"medical_certificate"`
}

// PredictionHandler exposes the risk-prediction endpoint.
type PredictionHandler struct {
	predictions *service.PredictionService
}

// NewPredictionHandler constructs PredictionHandler.
func NewPredictionHandler(predictions *service.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// Predict godoc
// @Summary Predict a student's risk status
// @Tags Predictions
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body PredictRequest true "Prediction input"
// @Success 200 {object} response.Envelope
// @Router /predictions/{id} [post]
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.predictions.Predict(c.Request.Context(), c.Param("id"), req.MedicalCertificate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
