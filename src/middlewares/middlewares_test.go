package middlewares

import (
	"context"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/repository"
	"falcontour/src/types"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var secret = []byte("middleware-secret")

func newRouter(t *testing.T) (*gin.Engine, *models.User, *models.User) {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	user := &models.User{Email: "guest@example.com", Role: types.USER}
	admin := &models.User{Email: "admin@example.com", Role: types.ADMIN}
	require.NoError(t, store.Users().Create(context.Background(), user))
	require.NoError(t, store.Users().Create(context.Background(), admin))

	r := gin.New()
	r.Use(SecureHeaders)
	authed := r.Group("/", AuthMiddleware(secret, store.Users()))
	authed.GET("/me", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"id": ctx.GetUint("id"), "email": ctx.GetString("email")})
	})
	authed.GET("/admin", AdminOnly, func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	r.POST("/oauth", VerifyIdToken, func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"id_token": ctx.GetString("id_token")})
	})
	return r, user, admin
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, user, _ := newRouter(t)

	token, err := lib.IssueToken(secret, user.ID, user.Email, user.Role, "", time.Hour)
	require.NoError(t, err)
	w := get(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest@example.com", gjson.Get(w.Body.String(), "email").String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)

	reset, err := lib.IssueToken(secret, user.ID, user.Email, user.Role, "reset", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", reset).Code)

	other, err := lib.IssueToken([]byte("other-secret"), user.ID, user.Email, user.Role, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", other).Code)

	ghost, err := lib.IssueToken(secret, 999, "ghost@example.com", types.USER, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", ghost).Code)
}

func TestAdminOnly(t *testing.T) {
	r, user, admin := newRouter(t)

	userToken, err := lib.IssueToken(secret, user.ID, user.Email, user.Role, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", userToken).Code)

	adminToken, err := lib.IssueToken(secret, admin.ID, admin.Email, admin.Role, "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", adminToken).Code)
}

func TestVerifyIdToken(t *testing.T) {
	r, _, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/oauth", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/oauth", nil)
	req.Header.Set("Authorization", "Bearer firebase-id-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "firebase-id-token", gjson.Get(w.Body.String(), "id_token").String())
}

func TestMaintenance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Maintenance(true))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	w := get(r, "/", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "server is under maintenance", gjson.Get(w.Body.String(), "error").String())
}
