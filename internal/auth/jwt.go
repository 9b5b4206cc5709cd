package auth

import (
	"aistudio/internal/entity"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultIssuer     = "aistudio"
	// 允许签发方与校验方之间的少量时钟偏差
	clockLeeway = 30 * time.Second
)

var (
	ErrMissingBearer = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid session token")
	ErrTokenExpired  = errors.New("session token expired")
)

// SessionClaims 是会话 token 的载荷。角色只用于展示，权限判断以数据库中的用户为准。
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager 签发并校验 HS256 会话 token。
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret, issuer string, ttl time.Duration) (*Manager, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if issuer = strings.TrimSpace(issuer); issuer == "" {
		issuer = defaultIssuer
	}
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// GenerateToken 为用户签发会话 token，返回 token 与过期时间。
func (m *Manager) GenerateToken(user *entity.DbUser) (string, time.Time, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("session requires a persisted user")
	}
	issuedAt := m.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken 校验签名、签发方与有效期。过期返回 ErrTokenExpired，其余失败返回 ErrInvalidToken。
func (m *Manager) ParseToken(raw string) (*SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(m.now),
	)

	claims := &SessionClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case strings.TrimSpace(claims.UserID) == "":
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	return claims, nil
}

// BearerToken 从 Authorization 头中提取 Bearer Token。
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingBearer
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}
