package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edu-analytics/student-portal-api/internal/service"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
	"github.com/edu-analytics/student-portal-api/pkg/response"
)

// StudentHandler exposes the student's own views. The student ID always
// comes from the session claims, never from the request, so a student can
// only ever see their own data.
type StudentHandler struct {
	records *service.RecordService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(records *service.RecordService) *StudentHandler {
	return &StudentHandler{records: records}
}

// Assignments godoc
// @Summary List the logged-in student's assignments with download links
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me/assignments [get]
func (h *StudentHandler) Assignments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, err := h.records.StudentAssignments(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views)
}

// Performance godoc
// @Summary Show the logged-in student's performance report
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me/performance [get]
func (h *StudentHandler) Performance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.records.StudentPerformance(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
