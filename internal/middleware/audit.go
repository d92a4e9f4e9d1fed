package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mkarlsen/userdeck/internal/services"
)

// AuditLog records write operations (POST/PUT/DELETE) against the API to the
// audit_logs table, tagged with the acting user when authenticated.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		c.Next()

		userID := GetUserID(c)
		status := c.Writer.Status()

		level := "info"
		if status >= 400 {
			level = "warning"
		}

		message := fmt.Sprintf("%s %s -> %d", method, c.Request.URL.Path, status)
		services.LogAudit(level, "api.write", message, userID, c.ClientIP(), c.Request.UserAgent())
	}
}
