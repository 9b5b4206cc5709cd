package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength 是注册、管理员建号与改密共用的最短长度。
	MinPasswordLength = 8
	// bcrypt 只使用前 72 字节，更长的密码直接拒绝。
	maxPasswordBytes = 72
)

var (
	ErrWeakPassword    = fmt.Errorf("password must be %d-%d bytes", MinPasswordLength, maxPasswordBytes)
	ErrInvalidPassword = errors.New("invalid password")
)

// NormalizePassword 去掉首尾空白并校验长度。
func NormalizePassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	if len(password) < MinPasswordLength || len(password) > maxPasswordBytes {
		return "", ErrWeakPassword
	}
	return password, nil
}

// HashPassword 校验并哈希明文密码。
func HashPassword(password string) (string, error) {
	normalized, err := NormalizePassword(password)
	if err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(normalized), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword 比对密码，不匹配或存储的哈希为空时返回 ErrInvalidPassword。
func VerifyPassword(hash, candidate string) error {
	if strings.TrimSpace(hash) == "" {
		return ErrInvalidPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(candidate)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}
