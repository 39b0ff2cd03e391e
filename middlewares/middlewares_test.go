package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/admin", AuthMiddleware(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id"), "role": c.GetString("role")})
	})
	r.GET("/ws", WebSocketAuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := protectedRouter()
	adminToken, err := utils.GenerateToken(1, models.RoleAdmin)
	require.NoError(t, err)
	workerToken, err := utils.GenerateToken(2, models.RoleWorker)
	require.NoError(t, err)

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", adminToken, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong role", "Bearer " + workerToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(r, "/admin", tt.auth).Code)
		})
	}
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := protectedRouter()
	token, err := utils.GenerateToken(2, models.RoleWorker)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ws", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ws?token=bogus", "").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/ws?token="+token, "").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/ws", "Bearer "+token).Code)

	clientToken, err := utils.GenerateToken(3, models.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/ws?token="+clientToken, "").Code)

	noUser, err := utils.GenerateToken(0, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ws?token="+noUser, "").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "").Code)

	assert.Equal(t, 1, rl.ips.Size())
	rl.Cleanup(time.Hour)
	assert.Equal(t, 1, rl.ips.Size())
	time.Sleep(5 * time.Millisecond)
	rl.Cleanup(time.Millisecond)
	assert.Zero(t, rl.ips.Size())
}

func TestStrictRateLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewStrictRateLimiter(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/ping", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
