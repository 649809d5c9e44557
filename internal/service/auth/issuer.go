package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/recipe-api/internal/platform/logger"
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

// DevTokenIssuer mints and verifies HS256 tokens for local development, where
// no gateway authorizer sits in front of the server.
type DevTokenIssuer struct {
	signingKey    []byte
	tokenLifetime time.Duration
	timeFunc      func() time.Time // Injectable for testing
	clockSkew     time.Duration
}

var _ ClaimsDecoder = (*DevTokenIssuer)(nil)

// NewDevTokenIssuer creates a DevTokenIssuer. The secret must be at least
// MinSecretLength characters.
func NewDevTokenIssuer(secret string, lifetime time.Duration) (*DevTokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrWeakSecret, MinSecretLength)
	}
	return &DevTokenIssuer{
		signingKey:    []byte(secret),
		tokenLifetime: lifetime,
		timeFunc:      time.Now,
		clockSkew:     2 * time.Minute,
	}, nil
}

// WithTimeFunc returns a copy of the issuer that reads the clock from fn.
func (s *DevTokenIssuer) WithTimeFunc(fn func() time.Time) *DevTokenIssuer {
	cp := *s
	cp.timeFunc = fn
	return &cp
}

// Issue creates a signed token for subject carrying roles in the
// custom:roles claim.
func (s *DevTokenIssuer) Issue(ctx context.Context, subject string, roles []string) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := s.timeFunc()

	claims := jwt.MapClaims{
		"sub": subject,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(s.tokenLifetime)),
		"jti": uuid.New().String(),
	}
	if len(roles) > 0 {
		claims["custom:roles"] = roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign development token",
			"error", err,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}

// DecodeClaims verifies the signature and time claims of token and returns
// its claim set.
func (s *DevTokenIssuer) DecodeClaims(ctx context.Context, token string) (map[string]any, error) {
	now := s.timeFunc()
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		logger.FromContext(ctx).Debug("token validation failed", "error_type", errorKind(err))
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}
