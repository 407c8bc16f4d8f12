package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAdminTokenInvalid 管理端 Token 无效
var ErrAdminTokenInvalid = errors.New("admin token invalid")

// JWTClaims 管理端 JWT 声明（由认证服务签发）
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// GenerateAdminJWT 生成管理端 JWT Token（供种子工具与联调使用）
func GenerateAdminJWT(secretKey string, adminID uint, username string, isSuper bool, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(secretKey) == "" || adminID == 0 {
		return "", time.Time{}, ErrAdminTokenInvalid
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := JWTClaims{
		AdminID:  adminID,
		Username: username,
		IsSuper:  isSuper,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAdminJWT 校验并解析管理端 JWT Token
func ParseAdminJWT(secretKey, tokenString string) (*JWTClaims, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, ErrAdminTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.AdminID != 0 {
		return claims, nil
	}
	return nil, ErrAdminTokenInvalid
}
