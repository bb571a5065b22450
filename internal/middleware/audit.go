package middleware

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/pkg/logger"
)

const maxAuditBody = 2000

var sensitiveJSON = regexp.MustCompile(`(?i)("(?:password|secret|token|clientSecret|client_secret)"\s*:\s*")[^"]*(")`)

// AuditLog writes one structured log line per mutating request.
// Webhook bodies are not captured.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil && !strings.Contains(c.FullPath(), "/webhooks/") {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(string(raw))
			if len(body) > maxAuditBody {
				body = body[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		resource, action := parseRouteInfo(c.FullPath(), method)
		status := c.Writer.Status()

		evt := logger.Info()
		if status >= 400 {
			evt = logger.Warn()
		}
		evt.Str("audit", resource).
			Str("action", action).
			Str("method", method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Uint("user_id", GetUserID(c)).
			Str("ip", c.ClientIP()).
			Str("request_id", logger.RequestID(c)).
			Str("body", body).
			Msg("audit")
	}
}

// parseRouteInfo derives a resource and action from a route template,
// e.g. "/api/projects/:id" with PUT gives "projects", "update".
func parseRouteInfo(fullPath, method string) (resource, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	resource = strings.SplitN(path, "/", 2)[0]
	if resource == "" {
		resource = "unknown"
	}

	switch method {
	case "POST":
		action = "create"
	case "PUT":
		action = "update"
	case "DELETE":
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return resource, action
}

func maskSensitiveFields(body string) string {
	return sensitiveJSON.ReplaceAllString(body, `${1}***${2}`)
}
