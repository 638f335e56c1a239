package handler

import (
	"net/http"
	"strconv"

	"gigportal_backend/internal/wallet/service"
	"gigportal_backend/internal/wallet/transport"
	"gigportal_backend/platform/httpkit"
	"gigportal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the wallet.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new wallet handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the wallet routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetWallet)
	rg.GET("/entries", h.ListEntries)
	rg.POST("/withdrawals", h.Withdraw)
}

func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetWallet(c.Request.Context(), userID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListEntries(c *gin.Context) {
	userID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.svc.ListEntries(c.Request.Context(), userID, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := httpkit.MustGetUserID(c)
	if !ok {
		return
	}

	var req transport.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed")
		return
	}

	result, err := h.svc.Withdraw(c.Request.Context(), userID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
