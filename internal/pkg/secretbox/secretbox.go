// Package secretbox 充值私钥落库加密
// 密文格式 v1:<nonce>:<tag>:<ciphertext>，各段为标准 base64
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	version   = "v1"
	nonceSize = 12
	tagSize   = 16
)

var (
	ErrConfig               = errors.New("secretbox: encryption secret is not configured")
	ErrInvalidPayload       = errors.New("secretbox: invalid encrypted payload")
	ErrAuthenticationFailed = errors.New("secretbox: authentication failed")
)

// Box AES-256-GCM 加解密，密钥为 sha256(secret)
type Box struct {
	aead cipher.AEAD
}

// New 根据配置的密钥创建 Box，密钥为空时返回 ErrConfig
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, ErrConfig
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("secretbox: create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("secretbox: create gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Encrypt 加密明文，每次使用新的随机 nonce
func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secretbox: read nonce: %w", err)
	}

	sealed := b.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	enc := base64.StdEncoding
	return strings.Join([]string{
		version,
		enc.EncodeToString(nonce),
		enc.EncodeToString(tag),
		enc.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt 解密 Encrypt 生成的密文
func (b *Box) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 4 || parts[0] != version {
		return "", ErrInvalidPayload
	}

	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[1])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrInvalidPayload
	}
	tag, err := enc.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return "", ErrInvalidPayload
	}
	ciphertext, err := enc.DecodeString(parts[3])
	if err != nil {
		return "", ErrInvalidPayload
	}

	plain, err := b.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plain), nil
}
