package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthfirst/portal-api/internal/handler"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/session"
	apperrors "github.com/healthfirst/portal-api/pkg/errors"
)

const (
	ContextAuthToken = "auth_token"

	LoginRequiredMessage = "Please log in to continue."
)

// RequireSession lets a request through only when the portal session holds a
// token for role. The token is placed on the context for upstream calls.
func RequireSession(sessions *session.Manager, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := sessions.Load(c.Request.Context(), SessionID(c), role)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to read session"))
			return
		}
		if !state.LoggedIn() {
			appErr := apperrors.NewUnauthorized(LoginRequiredMessage, nil)
			c.AbortWithStatusJSON(appErr.HTTPStatus(), handler.NewErrorResponse(appErr.Message))
			return
		}

		c.Set(ContextAuthToken, state.Token)
		c.Next()
	}
}

// AuthToken returns the token stored by RequireSession.
func AuthToken(c *gin.Context) string {
	return c.GetString(ContextAuthToken)
}
