package middleware

import (
	"net/http"
	"strings"

	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequireAdmin allows only the account whose email is the configured admin
// email. It must run after AuthRequired.
func RequireAdmin(adminEmail string) gin.HandlerFunc {
	adminEmail = strings.TrimSpace(adminEmail)
	return func(c *gin.Context) {
		if !IsAdmin(c, adminEmail) {
			utils.AbortFail(c, http.StatusForbidden, "Unauthorized. Admin access required.")
			return
		}
		c.Next()
	}
}

// IsAdmin reports whether the authenticated user holds the admin email.
func IsAdmin(c *gin.Context, adminEmail string) bool {
	u, ok := CurrentUser(c)
	adminEmail = strings.TrimSpace(adminEmail)
	return ok && adminEmail != "" && strings.EqualFold(u.Email, adminEmail)
}
