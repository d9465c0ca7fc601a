package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/services"
	"github.com/KERD-ORG/Bornomala-Updated/internal/utils"
)

const lookupKindKey = "lookup_kind"

// LookupHandler serves CRUD for every lookup kind. Each kind gets its own
// route group and the group pins the kind on the context.
type LookupHandler struct {
	BaseHandler
	service services.LookupService
}

func NewLookupHandler(service services.LookupService, logger utils.Logger) *LookupHandler {
	return &LookupHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// WithKind pins kind for the handlers of one route group
func WithKind(kind models.LookupKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(lookupKindKey, kind)
		utils.EnrichLogger(c, "lookup_kind", kind)
		c.Next()
	}
}

func (h *LookupHandler) kind(c *gin.Context) (models.LookupKind, bool) {
	if v, ok := c.Get(lookupKindKey); ok {
		if kind, ok := v.(models.LookupKind); ok {
			return kind, true
		}
	}
	h.handleServiceError(c, models.ErrUnknownLookupKind)
	return "", false
}

// CreateLookup creates a lookup entry
// @Summary Create a lookup entry
// @Tags lookups
// @Accept json
// @Produce json
// @Param request body services.CreateLookupRequest true "Lookup creation request"
// @Success 201 {object} models.Lookup
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "Parent not found"
// @Failure 409 {object} ErrorResponse "Name already exists"
// @Router /{kind} [post]
func (h *LookupHandler) CreateLookup(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	var req services.CreateLookupRequest
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

	h.LogRequest(c, "Creating lookup")

	lookup, err := h.service.Create(c.Request.Context(), kind, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lookup)
}

// GetLookup returns one lookup entry
// @Summary Get a lookup entry
// @Tags lookups
// @Produce json
// @Param id path int true "Lookup ID"
// @Success 200 {object} models.Lookup
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /{kind}/{id} [get]
func (h *LookupHandler) GetLookup(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	lookup, err := h.service.GetByID(c.Request.Context(), kind, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lookup)
}

// UpdateLookup partially updates a lookup entry
// @Summary Update a lookup entry
// @Tags lookups
// @Accept json
// @Produce json
// @Param id path int true "Lookup ID"
// @Param request body services.UpdateLookupRequest true "Lookup update request"
// @Success 200 {object} models.Lookup
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Name already exists"
// @Router /{kind}/{id} [patch]
func (h *LookupHandler) UpdateLookup(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateLookupRequest
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

	h.LogRequest(c, "Updating lookup")

	lookup, err := h.service.Update(c.Request.Context(), kind, id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, lookup)
}

// DeleteLookup removes a lookup entry. Children cascade and question
// references are cleared.
// @Summary Delete a lookup entry
// @Tags lookups
// @Param id path int true "Lookup ID"
// @Success 204 "No content"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /{kind}/{id} [delete]
func (h *LookupHandler) DeleteLookup(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.actorID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting lookup")

	if err := h.service.Delete(c.Request.Context(), kind, id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListLookups lists the entries of one kind
// @Summary List lookup entries
// @Tags lookups
// @Produce json
// @Param name query string false "Name contains"
// @Param parent query int false "Parent ID"
// @Success 200 {object} services.LookupListResponse
// @Router /{kind} [get]
func (h *LookupHandler) ListLookups(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	var req services.ListLookupsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_query",
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	response, err := h.service.List(c.Request.Context(), kind, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
