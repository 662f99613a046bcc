// Package idtoken 校验身份提供方签发的 bearer token，返回账户 uid
package idtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token 缺失、过期或签名不合法
var ErrInvalidToken = errors.New("invalid token")

const maxUIDLength = 128

// Verifier 把 bearer token 解析为 uid
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

func subjectOf(claims *jwt.RegisteredClaims) (string, error) {
	uid := claims.Subject
	if uid == "" || len(uid) > maxUIDLength {
		return "", fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uid, nil
}

// HMACVerifier 本地开发使用的 HS256 token
type HMACVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), now: time.Now}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return subjectOf(claims)
}

// GenerateToken 签发开发用 token
func GenerateToken(uid, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
