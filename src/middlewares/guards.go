package middlewares

import (
	"errors"
	"falcontour/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOnly must run after AuthMiddleware.
func AdminOnly(ctx *gin.Context) {
	role, _ := ctx.Get("role")
	if r, ok := role.(types.UserRole); !ok || !r.IsAdmin() {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	ctx.Next()
}

func SecureHeaders(ctx *gin.Context) {
	ctx.Header("X-Content-Type-Options", "nosniff")
	ctx.Header("X-Frame-Options", "DENY")
	ctx.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	ctx.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
	ctx.Next()
}

// Maintenance answers 503 to everything while enabled.
func Maintenance(enabled bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if enabled {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		ctx.Next()
	}
}
