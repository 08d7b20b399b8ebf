package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	leadService service.LeadService
}

func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

func (h *LeadHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/leads")
	group.Use(middleware.RequireRole("admin", "director", "manager"))
	{
		group.POST("/import", h.ImportLeads)
	}
}

// ImportLeads pulls new rows from the lead spreadsheet into the pipeline
// @Summary      Import sheet leads
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ImportResult}
// @Router       /api/leads/import [post]
func (h *LeadHandler) ImportLeads(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	result, err := h.leadService.ImportLeads(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
