package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jiuba_platform/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== JWT ====================

func TestGenerateAndParseToken(t *testing.T) {
	shopID := int64(7)
	access, refresh, err := GenerateTokenPair(1, "alice", "merchant", &shopID)
	require.NoError(t, err)

	claims, err := ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, "merchant", claims.Role)
	assert.Equal(t, "access", claims.Subject)
	require.NotNil(t, claims.ShopID)
	assert.Equal(t, int64(7), *claims.ShopID)

	rc, err := ParseToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", rc.Subject)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateTokenPair(1, "alice", "customer", nil)
	require.NoError(t, err)

	old := GetJWTConfig()
	SetJWTConfig(&JWTConfig{SecretKey: "other", AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour})
	defer SetJWTConfig(old)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	old := GetJWTConfig()
	SetJWTConfig(&JWTConfig{SecretKey: "k", AccessTokenTTL: -time.Minute, RefreshTokenTTL: time.Hour})
	defer SetJWTConfig(old)

	token, err := GenerateAccessToken(1, "alice", "customer", nil)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTConfigFrom(t *testing.T) {
	cfg := JWTConfigFrom(config.JWTConfig{Secret: "s", AccessTTL: time.Minute})
	assert.Equal(t, "s", cfg.SecretKey)
	assert.Equal(t, time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, DefaultJWTConfig().RefreshTokenTTL, cfg.RefreshTokenTTL)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c)})
	})
	r.GET("/admin", JWTAuth(), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/optional", OptionalAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	r := newAuthRouter()
	access, refresh, err := GenerateTokenPair(9, "bob", "customer", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"无认证头", "/me", "", http.StatusUnauthorized},
		{"格式错误", "/me", "Token " + access, http.StatusUnauthorized},
		{"refresh 不能访问", "/me", "Bearer " + refresh, http.StatusUnauthorized},
		{"正常访问", "/me", "Bearer " + access, http.StatusOK},
		{"角色不足", "/admin", "Bearer " + access, http.StatusForbidden},
		{"可选认证匿名", "/optional", "", http.StatusOK},
		{"可选认证无效 token", "/optional", "Bearer bad", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

// ==================== 冷却限流 ====================

func TestCooldownLimiter_Check(t *testing.T) {
	limiter := NewCooldownLimiter()
	key := UserActionKey(1, ActionCheckout)

	assert.True(t, limiter.Check(key, time.Minute).Allowed)

	res := limiter.Check(key, time.Minute)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	assert.False(t, limiter.CheckOnly(key, time.Minute).Allowed)
	limiter.Reset(key)
	assert.True(t, limiter.CheckOnly(key, time.Minute).Allowed)

	// 不同用户互不影响
	assert.True(t, limiter.Check(UserActionKey(2, ActionCheckout), time.Minute).Allowed)
}

func TestCooldownLimiter_Prune(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewCooldownLimiter()
	limiter.now = func() time.Time { return clock }

	limiter.Check(UserActionKey(1, ActionPayment), time.Second)
	limiter.Check(UserActionKey(2, ActionPayment), time.Second)
	assert.Equal(t, 2, limiter.size())

	clock = clock.Add(11 * time.Minute)
	limiter.Check(UserActionKey(3, ActionPayment), time.Second)
	assert.Equal(t, 1, limiter.size())
}

func TestActionCooldown(t *testing.T) {
	r := gin.New()
	r.POST("/orders", func(c *gin.Context) {
		c.Set(ContextKeyUserID, int64(1001))
		c.Next()
	}, ActionCooldown(ActionCheckout, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retry_after")
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "操作过于频繁，请 3 秒后重试", formatRetryMessage(2500*time.Millisecond))
	assert.Equal(t, "操作过于频繁，请 2 分钟后重试", formatRetryMessage(2*time.Minute))
	assert.Equal(t, "操作过于频繁，请 1 分 5 秒后重试", formatRetryMessage(65*time.Second))
}

// ==================== IP 限流 ====================

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("1.1.1.1"))
	assert.False(t, limiter.Allow("1.1.1.1"))
	assert.True(t, limiter.Allow("2.2.2.2"))

	unlimited := NewIPRateLimiter(0, 0)
	for i := 0; i < 10; i++ {
		assert.True(t, unlimited.Allow("1.1.1.1"))
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Body.String())
}
