package api

import (
	"errors"
	"gymhub/social-fitness/internal/domain"
	"gymhub/social-fitness/internal/service"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContextUserKey is where AuthMiddleware stores the resolved *domain.User.
const ContextUserKey = "currentUser"

// AuthMiddleware resolves the bearer token to a user. Any failure ends the request with 401.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		user, err := authService.ResolveToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			} else {
				abortWithError(c, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// currentUser returns the user set by AuthMiddleware.
func currentUser(c *gin.Context) *domain.User {
	raw, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := raw.(*domain.User)
	return user
}

// currentUserID aborts with 401 when no user is attached, which only happens if a route was
// registered outside the protected group by mistake.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	user := currentUser(c)
	if user == nil {
		abortWithError(c, http.StatusUnauthorized, "Authentication required")
		return primitive.NilObjectID, false
	}
	return user.ID, true
}

// parseIDParam reads an ObjectID path parameter, answering 400 if it is malformed.
func parseIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}
