package jwt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience identifies which secret a token is signed with.
type Audience string

// The audiences the service knows secrets for.
const (
	AudienceSep10            Audience = "sep10"
	AudienceSep24Interactive Audience = "sep24-interactive"
	AudienceSep24MoreInfo    Audience = "sep24-more-info"
	AudienceCallback         Audience = "callback"
	AudiencePlatform         Audience = "platform"
	AudienceCustody          Audience = "custody"
)

var (
	// ErrUnknownAudience is returned when no secret is configured for the
	// requested audience.
	ErrUnknownAudience = errors.New("unknown jwt audience")
	// ErrInvalidToken is returned for tokens that fail signature or
	// algorithm checks.
	ErrInvalidToken = errors.New("invalid token")
)

// Service signs and verifies HS256 tokens with one secret per audience.
// Secrets are base64-encoded before signing, and the audience is the single
// dispatch key; tokens signed with any other algorithm are rejected.
type Service struct {
	secrets map[Audience]string
	exp     time.Duration
}

// New creates a Service from raw per-audience secrets. Audiences with an
// empty secret are left unconfigured; encoding for them fails.
func New(secrets map[Audience]string, expiration time.Duration) *Service {
	encoded := make(map[Audience]string, len(secrets))
	for audience, secret := range secrets {
		if secret == "" {
			continue
		}
		encoded[audience] = base64.StdEncoding.EncodeToString([]byte(secret))
	}
	return &Service{secrets: encoded, exp: expiration}
}

func (s *Service) secret(audience Audience) (string, error) {
	secret, ok := s.secrets[audience]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAudience, audience)
	}
	return secret, nil
}

// Encode signs the given claims for an audience. The iat and exp claims are
// filled in when absent.
func (s *Service) Encode(ctx context.Context, audience Audience, claims jwt.MapClaims) (string, error) {
	secret, err := s.secret(audience)
	if err != nil {
		return "", err
	}

	if claims == nil {
		claims = jwt.MapClaims{}
	}
	now := time.Now()
	if _, ok := claims["iat"]; !ok {
		claims["iat"] = now.Unix()
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = now.Add(s.exp).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Decode verifies a token against the audience's secret and returns its
// claims. Tokens whose header algorithm is not HS256 are rejected.
func (s *Service) Decode(ctx context.Context, audience Audience, tokenString string) (jwt.MapClaims, error) {
	secret, err := s.secret(audience)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate checks a platform-audience token. The auth middleware guards the
// RPC route with it.
func (s *Service) Validate(ctx context.Context, tokenString string) error {
	_, err := s.Decode(ctx, AudiencePlatform, tokenString)
	return err
}

// GetTokenFromRequest extracts the bearer token from the Authorization
// header.
func (s *Service) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}
