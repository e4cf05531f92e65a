package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// actorHeader carries the authenticated user id set by the upstream gateway
const actorHeader = "X-User-Id"

const actorContextKey = "actor"

// actorMiddleware resolves the acting user from the identity header and puts
// it on the gin context. Requests without a resolvable actor are rejected.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(actorHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   &ErrorBody{Code: "UNAUTHORIZED", Message: "missing " + actorHeader + " header"},
			})
			return
		}

		user, err := s.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("Failed to load actor", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   &ErrorBody{Code: "DB_ERROR", Message: "failed to load user"},
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   &ErrorBody{Code: "UNAUTHORIZED", Message: "unknown user"},
			})
			return
		}

		c.Set(actorContextKey, user)
		c.Next()
	}
}

// actor returns the authenticated user placed on the context by the middleware
func actor(c *gin.Context) *entity.User {
	if v, ok := c.Get(actorContextKey); ok {
		if user, ok := v.(*entity.User); ok {
			return user
		}
	}
	return nil
}
