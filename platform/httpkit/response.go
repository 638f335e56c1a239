// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"gigportal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform response format for every endpoint.
// Success responses carry Data; error responses carry Error, Code and Message.
type Envelope struct {
	OK      bool        `json:"ok"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Status  int         `json:"status"`
}

// JSON sends a success envelope with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, Envelope{OK: true, Data: payload, Status: status})
}

// OK sends a 200 success envelope with the given payload.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Created sends a 201 success envelope with the given payload.
func Created(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusCreated, payload)
}

// Error sends an error envelope with the given status, code and message.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Envelope{
		OK:      false,
		Error:   message,
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// HandleError maps domain errors to HTTP responses.
// If the error is a typed *apperr.Error, its Kind determines the HTTP status
// and machine code. Non-typed errors default to 500 Internal.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		c.JSON(domainErr.HTTPStatus(), Envelope{
			OK:      false,
			Error:   domainErr.Message,
			Code:    domainErr.Code(),
			Message: domainErr.Message,
			Status:  domainErr.HTTPStatus(),
		})
		return true
	}

	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	return true
}
