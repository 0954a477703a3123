// Package auth validates bearer tokens issued by the external identity
// service and turns them into an operator.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bloomledger/internal/config"
	appctx "bloomledger/internal/core/context"
)

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email   string   `json:"email,omitempty"`
	Name    string   `json:"name,omitempty"`
	Branch  string   `json:"branch,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	IsAdmin bool     `json:"is_admin,omitempty"`
}

// JWTService validates HS256 tokens. Issue exists for tooling and tests.
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a validator for cfg.
func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTService{secret: []byte(cfg.Secret), issuer: cfg.Issuer, now: time.Now}, nil
}

// ValidateToken parses and verifies a token.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.Operator, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" && claims.Email == "" {
		return nil, errors.New("token has no subject")
	}

	return &appctx.Operator{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Branch:  claims.Branch,
		Roles:   claims.Roles,
		IsAdmin: claims.IsAdmin,
	}, nil
}

// Issue signs a token for op valid for ttl.
func (s *JWTService) Issue(op appctx.Operator, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:   op.Email,
		Name:    op.Name,
		Branch:  op.Branch,
		Roles:   op.Roles,
		IsAdmin: op.IsAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
