package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientService service.ClientService
}

func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup) {
	clients := router.Group("/api/clients")
	clients.Use(middleware.RequireAuth())
	{
		clients.GET("", h.ListClients)
		clients.POST("", h.CreateClient)
		clients.GET("/:id", h.GetClient)
		clients.PUT("/:id/stage", h.MoveStage)
		clients.POST("/:id/notes", h.AddNote)
		clients.POST("/:id/tasks", h.AddTask)
	}
}

// ListClients returns pipeline clients, optionally filtered by stage
// @Summary      List clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        stage   query  string  false  "Funnel stage filter"
// @Param        search  query  string  false  "Name/email/phone search"
// @Success      200  {object}  response.Response
// @Router       /api/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	params := pagination.Parse(c)

	clients, total, err := h.clientService.ListClients(c.Request.Context(), service.ClientFilter{
		Stage:  c.Query("stage"),
		Search: c.Query("search"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"clients": clients,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// CreateClient adds a client to the pipeline at the lead stage
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateClientDTO  true  "Client"
// @Success      201  {object}  response.Response
// @Router       /api/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	userID, _ := middleware.CurrentUser(c)
	client, err := h.clientService.CreateClient(c.Request.Context(), req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}

// GetClient returns one client with notes and tasks
// @Summary      Get client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Client ID"
// @Success      200  {object}  response.Response
// @Router       /api/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clientService.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// MoveStage moves a client through the funnel (or wins/loses them)
// @Summary      Move client stage
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "Client ID"
// @Param        payload  body  service.MoveStageDTO true  "Target stage"
// @Success      200  {object}  response.Response
// @Router       /api/clients/{id}/stage [put]
func (h *ClientHandler) MoveStage(c *gin.Context) {
	var req service.MoveStageDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	userID, _ := middleware.CurrentUser(c)
	client, err := h.clientService.MoveStage(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// AddNote attaches a note to a client
// @Summary      Add client note
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Client ID"
// @Param        payload  body  service.AddNoteDTO true  "Note"
// @Success      201  {object}  response.Response
// @Router       /api/clients/{id}/notes [post]
func (h *ClientHandler) AddNote(c *gin.Context) {
	var req service.AddNoteDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	userID, _ := middleware.CurrentUser(c)
	note, err := h.clientService.AddNote(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note))
}

// AddTask schedules a follow-up task for a client
// @Summary      Add client task
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Client ID"
// @Param        payload  body  service.AddTaskDTO true  "Task"
// @Success      201  {object}  response.Response
// @Router       /api/clients/{id}/tasks [post]
func (h *ClientHandler) AddTask(c *gin.Context) {
	var req service.AddTaskDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request: "+err.Error()))
		return
	}

	userID, _ := middleware.CurrentUser(c)
	task, err := h.clientService.AddTask(c.Request.Context(), c.Param("id"), req, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, task))
}
