package handler

import (
	"net/http"

	"gigportal_backend/internal/billing/service"
	"gigportal_backend/internal/billing/transport"
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

// Handler handles HTTP requests for invoices and payments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new billing handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the billing routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/invoices", h.ListInvoices)
	rg.POST("/invoices/:invoiceNumber/retry", h.RetryInvoice)
	rg.POST("/projects/:id/upfront", h.ExecuteUpfront)
	rg.POST("/projects/:id/invoices/manual", h.CreateManualInvoice)
	rg.POST("/projects/:id/payout", h.ExecuteFinalPayout)
	rg.GET("/projects/:id/readiness", h.GetReadiness)
	rg.POST("/projects/:id/tasks/:taskId/approve", h.ApproveTask)
}

// RegisterMaintenanceRoutes registers the service-key protected routes used
// by operational tooling.
func (h *Handler) RegisterMaintenanceRoutes(rg *gin.RouterGroup) {
	rg.POST("/maintenance/overdue-sweep", h.SweepOverdueInvoices)
}

// SweepOverdueInvoices transitions past-due sent invoices to overdue. It
// backs the scheduler's periodic sweep and can be triggered manually.
func (h *Handler) SweepOverdueInvoices(c *gin.Context) {
	marked, err := h.svc.MarkOverdueInvoices(c.Request.Context(), 200)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"markedOverdue": marked})
}

func (h *Handler) ListInvoices(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	var req transport.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgValidationFailed)
		return
	}

	result, err := h.svc.ListInvoices(c.Request.Context(), actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) RetryInvoice(c *gin.Context) {
	if _, ok := httpkit.MustGetUserID(c); !ok {
		return
	}
	invoiceNumber := c.Param("invoiceNumber")
	if invoiceNumber == "" {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidID)
		return
	}

	var req transport.RetryInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgValidationFailed)
		return
	}

	result, err := h.svc.RetryInvoicePayment(c.Request.Context(), invoiceNumber, true)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ExecuteUpfront(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.ExecuteUpfront(c.Request.Context(), actorID, projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) CreateManualInvoice(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req transport.ManualInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgValidationFailed)
		return
	}

	result, err := h.svc.CreateManualInvoice(c.Request.Context(), actorID, projectID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) ExecuteFinalPayout(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.ExecuteFinalPayout(c.Request.Context(), actorID, projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetReadiness(c *gin.Context) {
	actorID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.GetReadiness(c.Request.Context(), actorID, projectID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ApproveTask(c *gin.Context) {
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

	var req transport.ApproveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msgValidationFailed)
		return
	}

	result, err := h.svc.ApproveTask(c.Request.Context(), actorID, projectID, taskID)
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
