package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing!"

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	token, err := IssueToken("ops-1", RoleOperator, testSecret, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("IssueToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "ops-1")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	now := time.Now()
	token, err := IssueToken("ops-1", RoleViewer, testSecret, 0, now)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	diff := claims.ExpiresAt.Time.Sub(now.Add(DefaultTokenTTL))
	if diff < -time.Second || diff > time.Second {
		t.Errorf("default TTL off by %v", diff)
	}
}

func TestIssueToken_Rejects(t *testing.T) {
	if _, err := IssueToken("", RoleAdmin, testSecret, time.Minute, time.Now()); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("IssueToken(empty subject) error = %v, want ErrTokenInvalid", err)
	}
	if _, err := IssueToken("ops-1", "root", testSecret, time.Minute, time.Now()); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("IssueToken(bad role) error = %v, want ErrInvalidRole", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	valid, err := IssueToken("ops-1", RoleAdmin, testSecret, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	expired, err := IssueToken("ops-1", RoleAdmin, testSecret, time.Hour, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	// A correctly signed token with a role the API does not know.
	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "root",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	// No expiry at all.
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops-1"},
		Role:             RoleAdmin,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"empty", "", testSecret},
		{"garbage", "not-a-valid-jwt", testSecret},
		{"malformed", "abc.def", testSecret},
		{"wrong secret", valid, "another-secret-key-for-jwt-signing"},
		{"expired", expired, testSecret},
		{"unknown role", unknownRole, testSecret},
		{"no expiry", noExpiry, testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
