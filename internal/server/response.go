package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in error responses.
const (
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeDataQuality = "DATA_QUALITY"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}
