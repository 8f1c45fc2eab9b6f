package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Config holds token verification configuration.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`        // SigningKey is the shared HMAC secret.
	TTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`        // TTL is the lifetime of issued tokens.
	Issuer     string        `env:"JWT_ISSUER" envDefault:"replykit"` // Issuer is stamped into issued tokens.
}

// Service signs and verifies HS256 bearer tokens.
// Token issuance normally happens in the identity service; Generate exists
// for tooling and tests.
type Service struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
}

// NewService creates a token service from the provided config.
func NewService(cfg Config) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	return &Service{
		signingKey: []byte(cfg.SigningKey),
		ttl:        cfg.TTL,
		issuer:     cfg.Issuer,
	}, nil
}

// Generate issues a signed token for the given subject.
func (s *Service) Generate(subject string) (string, error) {
	if subject == "" {
		return "", ErrInvalidClaims
	}
	now := time.Now()
	claims := jwtlib.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return signed, nil
}

// Parse verifies the token signature and expiry and returns the subject claim.
func (s *Service) Parse(tokenString string) (string, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &jwtlib.RegisteredClaims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigningMethod
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return "", errors.Join(ErrExpiredToken, err)
		}
		return "", errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwtlib.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrMissingClaims
	}
	return claims.Subject, nil
}
