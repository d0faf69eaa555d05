package identity

import (
	"testing"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testJWTSecret = "secret"
	testUserID    = "user-123"
	testUserEmail = "user@example.com"
)

func signTestToken(t *testing.T, now time.Time, mutate func(*Claims)) string {
	t.Helper()
	claims := &Claims{
		Email: testUserEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testUserID,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	claims.UserMetadata.FullName = "Test User"
	if mutate != nil {
		mutate(claims)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	verifier, err := NewVerifier(VerifierConfig{
		JWTSecret: []byte(testJWTSecret),
		Clock:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("failed to construct verifier: %v", err)
	}
	return verifier
}

func TestVerifyResolvesIdentity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now)
	signed := signTestToken(t, now, nil)

	resolved, err := verifier.Verify(signed)
	if err != nil {
		t.Fatalf("unexpected verification failure: %v", err)
	}
	if resolved.ID != testUserID {
		t.Fatalf("unexpected identity id: %s", resolved.ID)
	}
	if resolved.Email != testUserEmail {
		t.Fatalf("unexpected email: %s", resolved.Email)
	}
	if resolved.DisplayName != "Test User" {
		t.Fatalf("unexpected display name: %s", resolved.DisplayName)
	}
	if resolved.RawToken != signed {
		t.Fatalf("raw token must be carried on the identity")
	}
	if resolved.Anonymous() {
		t.Fatalf("verified identity must not be anonymous")
	}
}

func TestVerifyMissingToken(t *testing.T) {
	verifier := newTestVerifier(t, time.Now())

	_, err := verifier.Verify("   ")
	if err == nil {
		t.Fatalf("expected error for missing token")
	}
	if apperr.KindOf(err) != apperr.KindNoAuth {
		t.Fatalf("unexpected kind: %s", apperr.KindOf(err))
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now)
	signed := signTestToken(t, now, func(c *Claims) {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	})

	_, err := verifier.Verify(signed)
	if err == nil {
		t.Fatalf("expected error for expired token")
	}
	if apperr.KindOf(err) != apperr.KindInvalidToken {
		t.Fatalf("unexpected kind: %s", apperr.KindOf(err))
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := newTestVerifier(t, now)
	signed := signTestToken(t, now, func(c *Claims) {
		c.Subject = ""
	})

	if _, err := verifier.Verify(signed); err == nil {
		t.Fatalf("expected error for missing subject")
	}
}

func TestNewAnonymous(t *testing.T) {
	anon := NewAnonymous()
	if !anon.Anonymous() {
		t.Fatalf("expected anonymous identity")
	}
}
