package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the standard JSON error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendErrorResponse writes a JSON error response with the given status
func SendErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}
