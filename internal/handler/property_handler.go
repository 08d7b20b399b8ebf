package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PropertyHandler struct {
	propertyService service.PropertyService
	changeService   service.ChangeService
	approvalService service.ApprovalService
}

func NewPropertyHandler(
	propertyService service.PropertyService,
	changeService service.ChangeService,
	approvalService service.ApprovalService,
) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		changeService:   changeService,
		approvalService: approvalService,
	}
}

func (h *PropertyHandler) RegisterRoutes(router *gin.RouterGroup) {
	properties := router.Group("/api/properties")
	properties.Use(middleware.RequireAuth())
	{
		properties.GET("", h.ListProperties)
		properties.POST("", h.CreateProperty)
		properties.GET("/:id", h.GetProperty)
		properties.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteProperty)
		properties.GET("/:id/changes", h.ListChanges)
		properties.POST("/:id/changes", h.SubmitChange)
		properties.POST("/:id/approve", h.Decide)
	}
}

// ListProperties returns the property catalog
// @Summary      List properties
// @Tags         properties
// @Security     BearerAuth
// @Produce      json
// @Param        search  query  string  false  "Title/city/developer search"
// @Param        status  query  string  false  "Status filter"
// @Success      200  {object}  response.Response
// @Router       /api/properties [get]
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	params := pagination.Parse(c)

	properties, total, err := h.propertyService.ListProperties(c.Request.Context(), service.PropertyFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"properties": properties,
		"total":      total,
		"page":       params.Page,
		"limit":      params.Limit,
	}))
}

// CreateProperty registers a new development
// @Summary      Create property
// @Tags         properties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePropertyDTO  true  "Property"
// @Success      201  {object}  response.Response
// @Router       /api/properties [post]
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var req service.CreatePropertyDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	userID, _ := middleware.CurrentUser(c)
	property, err := h.propertyService.CreateProperty(c.Request.Context(), req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, property))
}

// GetProperty returns one property by id
// @Summary      Get property
// @Tags         properties
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Property ID"
// @Success      200  {object}  response.Response
// @Router       /api/properties/{id} [get]
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	property, err := h.propertyService.GetProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, property))
}

// DeleteProperty removes a property (admin only, soft delete)
// @Summary      Delete property
// @Tags         properties
// @Security     BearerAuth
// @Param        id  path  string  true  "Property ID"
// @Success      200  {object}  response.Response
// @Router       /api/properties/{id} [delete]
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	if err := h.propertyService.DeleteProperty(c.Request.Context(), c.Param("id"), userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// ListChanges returns the change ledger for a property, newest first
// @Summary      List property changes
// @Tags         changes
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Property ID"
// @Success      200  {object}  response.Response
// @Router       /api/properties/{id}/changes [get]
func (h *PropertyHandler) ListChanges(c *gin.Context) {
	changes, err := h.changeService.ListChanges(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, changes))
}

// SubmitChange records a proposed field edit in the pending ledger
// @Summary      Submit property change
// @Tags         changes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "Property ID"
// @Param        payload  body  service.SubmitChangeDTO true  "Proposed edit"
// @Success      201  {object}  response.Response
// @Router       /api/properties/{id}/changes [post]
func (h *PropertyHandler) SubmitChange(c *gin.Context) {
	var req service.SubmitChangeDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	// Default the submitter to the authenticated user
	if req.SubmittedBy == "" {
		req.SubmittedBy, _ = middleware.CurrentUser(c)
	}

	change, err := h.changeService.SubmitChange(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, change))
}

// Decide approves or rejects pending changes for a property
// @Summary      Decide property changes
// @Tags         changes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string            true  "Property ID"
// @Param        payload  body  service.DecideDTO true  "Decision"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/properties/{id}/approve [post]
func (h *PropertyHandler) Decide(c *gin.Context) {
	var req service.DecideDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	userID, role := middleware.CurrentUser(c)
	result, err := h.approvalService.Decide(c.Request.Context(), c.Param("id"),
		service.Reviewer{ID: userID, Role: role}, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
