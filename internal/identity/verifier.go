// Package identity verifies bearer tokens issued by the identity provider
// and resolves them into the principal that owns profiles, feeds, history
// and summaries.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// AnonymousID is the identity used by the optional-auth path when no
// usable token is present.
const AnonymousID = "anonymous"

// Identity is the authenticated principal resolved from a bearer token.
// RawToken is carried so downstream data operations can enforce row-level
// authorization at the provider.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	RawToken    string
}

// Anonymous reports whether the identity is the unauthenticated principal.
func (i Identity) Anonymous() bool {
	return i.ID == AnonymousID
}

// NewAnonymous returns the identity used for public-ish endpoints.
func NewAnonymous() Identity {
	return Identity{ID: AnonymousID}
}

// Claims mirrors the JWT payload emitted by the identity provider.
type Claims struct {
	Email        string `json:"email"`
	UserMetadata struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user_metadata"`
	jwt.RegisteredClaims
}

// VerifierConfig describes how provider-issued JWTs are validated.
type VerifierConfig struct {
	JWTSecret []byte
	Clock     func() time.Time
}

// Verifier validates HS256 JWTs issued by the identity provider.
type Verifier struct {
	jwtSecret []byte
	clock     func() time.Time
}

// NewVerifier constructs a Verifier with the provided configuration.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("identity: jwt secret required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Verifier{
		jwtSecret: append([]byte(nil), cfg.JWTSecret...),
		clock:     clock,
	}, nil
}

// Verify validates the supplied token and resolves the owning identity.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return Identity{}, apperr.New(apperr.KindNoAuth, "no token provided")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm %s", t.Method.Alg())
			}
			return v.jwtSecret, nil
		},
		jwt.WithTimeFunc(v.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.KindInvalidToken, "invalid or expired token", err)
	}
	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, apperr.New(apperr.KindInvalidToken, "invalid or expired token")
	}

	return Identity{
		ID:          claims.Subject,
		Email:       strings.TrimSpace(claims.Email),
		DisplayName: strings.TrimSpace(claims.UserMetadata.FullName),
		AvatarURL:   strings.TrimSpace(claims.UserMetadata.AvatarURL),
		RawToken:    token,
	}, nil
}
