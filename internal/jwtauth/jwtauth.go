// Package jwtauth turns bearer tokens into caller identities.
package jwtauth

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/webstore/store-api/internal/domain/auth"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Config holds the token signing parameters shared by Verifier and Issuer.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
}

type claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS512 tokens.
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier returns a Verifier for cfg.
func NewVerifier(cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}
}

// Verify parses token and returns the identity it carries.
func (v *Verifier) Verify(token string) (auth.Identity, error) {
	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		return auth.Identity{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	id, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil || id <= 0 {
		return auth.Identity{}, errors.Wrap(ErrInvalidToken, "bad id claim")
	}
	role := auth.Role(c.Role)
	switch role {
	case auth.RoleClient, auth.RoleAdmin:
	default:
		return auth.Identity{}, errors.Wrap(ErrInvalidToken, "bad role claim")
	}
	return auth.Identity{UserID: id, Role: role}, nil
}

// Issuer signs tokens. The seeder uses it to print development tokens.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer returns an Issuer for cfg.
func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

// Issue returns a signed token for id valid for ttl.
func (i *Issuer) Issue(id auth.Identity, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		ID:   strconv.FormatInt(id.UserID, 10),
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if i.cfg.Audience != "" {
		c.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString(i.cfg.Secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
