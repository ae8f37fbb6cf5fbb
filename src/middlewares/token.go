package middlewares

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// VerifyIdToken requires a federated ID token in the Authorization header
// and exposes it as id_token. Verification happens in the users service.
func VerifyIdToken(ctx *gin.Context) {
	idToken, ok := bearer(ctx)
	if !ok {
		err := errors.New("missing authorization header")
		log.Printf("Check failed: %s\n", err.Error())
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	ctx.Set("id_token", idToken)
	ctx.Next()
}
