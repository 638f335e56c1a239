package handler

import (
	"net/http"

	"gigportal_backend/internal/projects/service"
	"gigportal_backend/internal/projects/transport"
	"gigportal_backend/platform/httpkit"
	"gigportal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// Handler handles HTTP requests for projects and tasks.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new projects handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the project routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Activate)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/tasks", h.ListTasks)
	rg.POST("/:id/tasks/:taskId/submit", h.SubmitTask)
	rg.POST("/:id/tasks/:taskId/reject", h.RejectTask)
}

func (h *Handler) Activate(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	var req transport.ActivateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgValidationFailed)
		return
	}

	result, err := h.svc.Activate(c.Request.Context(), actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.GetProject(c.Request.Context(), actorID, projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListTasks(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.ListTasks(c.Request.Context(), actorID, projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) SubmitTask(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	result, err := h.svc.SubmitTask(c.Request.Context(), actorID, projectID, taskID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) RejectTask(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "taskId")
	if !ok {
		return
	}

	result, err := h.svc.RejectTask(c.Request.Context(), actorID, projectID, taskID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
