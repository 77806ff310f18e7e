package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The storefront client reads every response through one envelope:
// {status: "success", data} on success, {status: "fail"|"error", message}
// otherwise.

func RespondData(c *gin.Context, code int, data gin.H) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

// RespondFail writes a 4xx envelope.
func RespondFail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "fail", "message": message})
}

// RespondError writes a 5xx envelope. Internal details stay in the logs.
func RespondError(c *gin.Context, code int, message string) {
	if message == "" {
		message = http.StatusText(code)
	}
	c.JSON(code, gin.H{"status": "error", "message": message})
}

func AbortFail(c *gin.Context, code int, message string) {
	RespondFail(c, code, message)
	c.Abort()
}

func AbortError(c *gin.Context, code int, message string) {
	RespondError(c, code, message)
	c.Abort()
}
