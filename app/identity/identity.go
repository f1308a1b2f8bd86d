// Package identity resolves bearer tokens into caller identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusblogs/app/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("identity: signing secret is required")
	ErrInvalidToken  = errors.New("identity: invalid token")
)

// Verifier turns a bearer token into the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// Claims is the JWT payload carried by identity tokens.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Config configures the HS256 token provider.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
	// Now overrides the clock used for issuing and validating.
	Now func() time.Time
}

// JWTProvider verifies HS256 tokens issued by the identity service and can
// mint tokens for development and tests.
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ Verifier = (*JWTProvider)(nil)

func NewJWTProvider(cfg Config) (*JWTProvider, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTProvider{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, now: now}, nil
}

// Issue signs a token for id.
func (p *JWTProvider) Issue(id models.Identity) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("identity: cannot issue a token without a user id")
	}
	now := p.now()
	claims := Claims{
		Name:  id.DisplayName,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) Verify(ctx context.Context, token string) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return models.Identity{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
	}, nil
}
