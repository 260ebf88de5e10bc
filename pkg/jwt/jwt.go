package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// Manager JWT管理器
// 设计说明：
// 1. 本服务只负责校验Token并取出图书所有者身份
// 2. Token签发由账号服务完成，这里的Issue仅供CLI和测试使用
type Manager struct {
	secret      string        // JWT签名密钥
	tokenExpire time.Duration // Token有效期
	issuer      string
}

// NewManager 创建JWT管理器
func NewManager(secret string, tokenExpire time.Duration) *Manager {
	return &Manager{
		secret:      secret,
		tokenExpire: tokenExpire,
		issuer:      "bookshelf",
	}
}

// Claims 自定义JWT Claims
// OwnerID 即图书集合的所有者（账号服务中的用户ID）
type Claims struct {
	OwnerID uint   `json:"owner_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// Issue 签发Token
func (m *Manager) Issue(ownerID uint, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		OwnerID: ownerID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", ownerID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.Wrap(err, "签发Token失败")
	}
	return signed, nil
}

// ParseToken 解析并验证Token
// 校验内容：签名算法、签名、exp、nbf
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OwnerID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// TokenTTL 返回Token的剩余有效期（用于黑名单过期时间）
func (c *Claims) TokenTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	ttl := c.ExpiresAt.Time.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
