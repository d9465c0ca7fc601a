package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KERD-ORG/Bornomala-Updated/internal/services"
	"github.com/KERD-ORG/Bornomala-Updated/internal/utils"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type QuestionHandler struct {
	BaseHandler
	service      services.QuestionService
	importExport services.ImportExportService
}

func NewQuestionHandler(service services.QuestionService, importExport services.ImportExportService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:  NewBaseHandler(logger),
		service:      service,
		importExport: importExport,
	}
}

// ===== CORE CRUD ENDPOINTS =====

// CreateQuestion creates a question of any variant
// @Summary Create a question
// @Description Create a question. The question_type tag selects the variant and its required fields.
// @Tags questions
// @Accept json
// @Produce json
// @Param request body services.CreateQuestionRequest true "Question creation request"
// @Success 201 {object} models.QuestionRecord
// @Failure 400 {object} ErrorResponse "Validation failed or unknown question type"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Referenced lookup not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_payload",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.actorID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating question", "question_type", req.QuestionType)

	record, err := h.service.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetQuestion returns the specific encoding of one question
// @Summary Get a question by ID
// @Tags questions
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} models.QuestionRecord
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	encoded, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", encoded)
}

// UpdateQuestion partially updates a question
// @Summary Update a question
// @Description Only supplied fields change. The question_type, if present, must match the stored one.
// @Tags questions
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param request body services.UpdateQuestionRequest true "Question update request"
// @Success 200 {object} models.QuestionRecord
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "Question or referenced lookup not found"
// @Failure 409 {object} ErrorResponse "Question type cannot change"
// @Router /questions/{id} [patch]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_payload",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.actorID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating question")

	record, err := h.service.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteQuestion removes a question with its answer options and links
// @Summary Delete a question
// @Tags questions
// @Param id path int true "Question ID"
// @Success 204 "No content"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.actorID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting question")

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListQuestions lists questions as generic envelopes
// @Summary List questions
// @Description Records that fail to encode appear with an error and never fail the page.
// @Tags questions
// @Produce json
// @Param question_type query string false "Variant tag"
// @Param target_subject query int false "Subject ID"
// @Param topic query int false "Topic ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} services.QuestionListResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var req services.ListQuestionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_query",
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	response, err := h.service.List(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ===== IMPORT / EXPORT =====

// ExportQuestions downloads the matching questions as an xlsx workbook
// @Summary Export questions
// @Tags questions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param question_type query string false "Variant tag"
// @Success 200 {file} file
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	var req services.ListQuestionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_query",
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Exporting questions", "question_type", req.QuestionType)

	data, err := h.importExport.ExportQuestions(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("questions_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ImportQuestions creates questions from an uploaded xlsx workbook
// @Summary Import questions
// @Description Each row is created independently. The report lists created ids and failed rows.
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx with question_type and payload columns"
// @Success 200 {object} services.ImportReport
// @Failure 400 {object} ErrorResponse "Missing or unreadable file"
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "file is required",
			Details: []validator.ValidationError{{Field: "file", Message: "is required", Rule: "required"}},
		})
		return
	}

	userID, ok := h.actorID(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "filename", fileHeader.Filename, "size", fileHeader.Size)

	report, err := h.importExport.ImportQuestions(c.Request.Context(), file, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
