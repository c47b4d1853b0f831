package middleware

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"jiuba_platform/internal/config"
)

const (
	subjectAccess  = "access"
	subjectRefresh = "refresh"
)

var (
	ErrTokenExpired   = errors.New("Token 已过期")
	ErrTokenInvalid   = errors.New("Token 无效")
	ErrTokenWrongType = errors.New("Token 类型错误")
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:       "jiuba-secret-key-change-in-production",
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "jiuba",
	}
}

// JWTConfigFrom 从应用配置构造，缺省项沿用默认值
func JWTConfigFrom(cfg config.JWTConfig) *JWTConfig {
	out := DefaultJWTConfig()
	if cfg.Secret != "" {
		out.SecretKey = cfg.Secret
	}
	if cfg.AccessTTL > 0 {
		out.AccessTokenTTL = cfg.AccessTTL
	}
	if cfg.RefreshTTL > 0 {
		out.RefreshTokenTTL = cfg.RefreshTTL
	}
	if cfg.Issuer != "" {
		out.Issuer = cfg.Issuer
	}
	return out
}

// 配置热更新时整体替换
var jwtConfig atomic.Pointer[JWTConfig]

func init() {
	jwtConfig.Store(DefaultJWTConfig())
}

// SetJWTConfig 设置 JWT 配置
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig.Store(cfg)
}

// GetJWTConfig 获取 JWT 配置
func GetJWTConfig() *JWTConfig {
	return jwtConfig.Load()
}

// ==================== Claims ====================

// UserClaims 登录用户声明，商家携带所属店铺
type UserClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ShopID   *int64 `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

func signToken(subject string, userID int64, username, role string, shopID *int64) (string, error) {
	cfg := GetJWTConfig()
	ttl := cfg.AccessTokenTTL
	if subject == subjectRefresh {
		ttl = cfg.RefreshTokenTTL
	}

	now := time.Now()
	claims := &UserClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		ShopID:   shopID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
}

// GenerateAccessToken 签发 Access Token
func GenerateAccessToken(userID int64, username, role string, shopID *int64) (string, error) {
	return signToken(subjectAccess, userID, username, role, shopID)
}

// GenerateRefreshToken 签发 Refresh Token
func GenerateRefreshToken(userID int64, username, role string, shopID *int64) (string, error) {
	return signToken(subjectRefresh, userID, username, role, shopID)
}

// GenerateTokenPair 登录与刷新时一次签发两种 Token
func GenerateTokenPair(userID int64, username, role string, shopID *int64) (accessToken, refreshToken string, err error) {
	if accessToken, err = GenerateAccessToken(userID, username, role, shopID); err != nil {
		return "", "", err
	}
	if refreshToken, err = GenerateRefreshToken(userID, username, role, shopID); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// ParseToken 校验签名、签发者和有效期
func ParseToken(tokenString string) (*UserClaims, error) {
	cfg := GetJWTConfig()
	claims := &UserClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(cfg.SecretKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithLeeway(5*time.Second),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ==================== Gin 中间件 ====================

const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
	ContextKeyShopID = "shop_id"
	ContextKeyClaims = "claims"
)

// accessClaims 从 Authorization 头取出 Access Token 并解析
func accessClaims(c *gin.Context) (*UserClaims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, errors.New("未提供认证信息")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errors.New("认证格式错误，应为 Bearer {token}")
	}

	claims, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subjectAccess {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}

func bindClaims(c *gin.Context, claims *UserClaims) {
	c.Set(ContextKeyClaims, claims)
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyRole, claims.Role)
	c.Set(ContextKeyShopID, claims.ShopID)
}

// JWTAuth 必须登录
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := accessClaims(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "message": err.Error()})
			return
		}
		bindClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth 携带有效 Token 时注入用户信息，否则按游客处理
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := accessClaims(c); err == nil {
			bindClaims(c, claims)
		}
		c.Next()
	}
}

// RequireRole 角色校验，需挂在 JWTAuth 之后
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetUserRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "未获取到用户角色"})
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "message": "无权限访问"})
			return
		}
		c.Next()
	}
}

// ==================== Context 取值 ====================

func contextValue[T any](c *gin.Context, key string) T {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero
	}
	if typed, ok := v.(T); ok {
		return typed
	}
	return zero
}

// GetUserID 未登录返回 0
func GetUserID(c *gin.Context) int64 {
	return contextValue[int64](c, ContextKeyUserID)
}

func GetUserRole(c *gin.Context) string {
	return contextValue[string](c, ContextKeyRole)
}

// GetShopID 商家所属店铺，其他角色为 nil
func GetShopID(c *gin.Context) *int64 {
	return contextValue[*int64](c, ContextKeyShopID)
}

func GetUsername(c *gin.Context) string {
	if claims := GetUserClaims(c); claims != nil {
		return claims.Username
	}
	return ""
}

func GetUserClaims(c *gin.Context) *UserClaims {
	return contextValue[*UserClaims](c, ContextKeyClaims)
}
