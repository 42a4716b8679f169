package api

import (
	"github.com/gin-gonic/gin"
)

// MessageResponse is the uniform body for errors and confirmations:
// every non-2xx response is {"message": "..."}.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondError writes the uniform error body
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}

// respondMessage writes a 2xx confirmation body
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}
