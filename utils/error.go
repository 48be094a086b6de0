package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	GetLogger().Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// JSONAppError answers with the status, code and message carried by err.
func JSONAppError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	var appErr *AppError
	if !errors.As(err, &appErr) {
		GetLogger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, ErrorResponse{Message: "Please try again later"})
		return
	}
	GetLogger().Warn(appErr.Message, zap.String("code", appErr.Code), zap.String("path", c.FullPath()))
	resp := ErrorResponse{Message: appErr.Message, Code: appErr.Code}
	if appErr.Err != nil && status < http.StatusInternalServerError {
		resp.Details = appErr.Err.Error()
	}
	c.JSON(status, resp)
}
