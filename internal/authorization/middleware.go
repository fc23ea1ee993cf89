package authorization

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Anonymous is the identity used when authentication is disabled.
var Anonymous = Identity{Role: RoleSuperAdmin}

// Authenticate requires a valid bearer token and stores the identity on the
// request context.
func (a *Authorizer) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), Anonymous))
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abort(c, http.StatusUnauthorized, ErrUnauthenticated, "authentication required")
			return
		}
		id, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			a.log.Debug("token rejected", zap.Error(err))
			abort(c, http.StatusUnauthorized, ErrUnauthenticated, "authentication required")
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// Require checks action against the building named by the building_id path
// parameter.
func (a *Authorizer) Require(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c.Request.Context())
		if !ok {
			abort(c, http.StatusUnauthorized, ErrUnauthenticated, "authentication required")
			return
		}
		if err := a.Authorize(id, c.Param("building_id"), action); err != nil {
			abort(c, http.StatusForbidden, ErrForbidden, "not allowed")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, err error, message string) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": err.Error(), "message": message}})
}
