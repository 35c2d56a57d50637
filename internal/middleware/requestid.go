package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/healthfirst/portal-api/internal/handler"
)

const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderPortalSession  = "X-Portal-Session"
	ContextRequestID     = "request_id"
	ContextPortalSession = "portal_session"
)

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)
		c.Next()
	}
}

// PortalSession resolves the browser's portal session from X-Portal-Session.
// A request without one gets a fresh id, echoed back so the client can keep
// it. A malformed id is rejected.
func PortalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(HeaderPortalSession)
		if sid == "" {
			sid = uuid.NewString()
		} else if _, err := uuid.Parse(sid); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse("invalid portal session id"))
			return
		}

		c.Set(ContextPortalSession, sid)
		c.Header(HeaderPortalSession, sid)
		c.Next()
	}
}

// SessionID returns the portal session resolved for this request.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextPortalSession)
}
