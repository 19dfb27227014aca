package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edu-analytics/student-portal-api/internal/service"
	appErrors "github.com/edu-analytics/student-portal-api/pkg/errors"
	"github.com/edu-analytics/student-portal-api/pkg/response"
)

// RecordHandler exposes the teacher-facing record endpoints.
type RecordHandler struct {
	records *service.RecordService
}

// NewRecordHandler constructs RecordHandler.
func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// UploadAssignment godoc
// @Summary Upload an assignment file for a student
// @Tags Records
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param name formData string false "Student name"
// @Param file formData file true "Assignment file"
// @Success 201 {object} response.Envelope
// @Router /records/{id}/assignment [post]
func (h *RecordHandler) UploadAssignment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close() //nolint:errcheck

	upload := service.AssignmentUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  src,
	}
	record, err := h.records.UploadAssignment(c.Request.Context(), c.Param("id"), c.PostForm("name"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// UpdatePerformance godoc
// @Summary Update a student's marks, attendance and status
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PerformanceUpdateRequest true "Performance payload"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/performance [put]
func (h *RecordHandler) UpdatePerformance(c *gin.Context) {
	var req service.PerformanceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.UpdatePerformance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// SetCredential godoc
// @Summary Set a student's login credential
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SetCredentialRequest true "Credential payload"
// @Success 204
// @Router /records/{id}/credential [put]
func (h *RecordHandler) SetCredential(c *gin.Context) {
	var req service.SetCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.records.SetCredential(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List all student records with risk counts
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	roster, err := h.records.Roster(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster)
}

// Export godoc
// @Summary Export the roster as CSV or PDF
// @Tags Records
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /records/export [get]
func (h *RecordHandler) Export(c *gin.Context) {
	payload, contentType, filename, err := h.records.ExportRoster(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
