package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	id := uuid.New()

	for _, kind := range []string{KindUser, KindDoctor, KindPatient} {
		token, err := issuer.Issue(id, kind)
		if err != nil {
			t.Fatalf("issue %s token: %v", kind, err)
		}

		ident, err := issuer.Verify(token)
		if err != nil {
			t.Fatalf("verify %s token: %v", kind, err)
		}
		if ident.PrincipalID != id {
			t.Errorf("kind %s: subject %s, want %s", kind, ident.PrincipalID, id)
		}
		if ident.Kind != kind {
			t.Errorf("expected kind %s, got %s", kind, ident.Kind)
		}
	}
}

func TestIssuer_RejectsExpired(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), -time.Minute)
	token, err := issuer.Issue(uuid.New(), KindUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestIssuer_RejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer([]byte("secret-a"), time.Hour).Issue(uuid.New(), KindUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewIssuer([]byte("secret-b"), time.Hour).Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Verify(tok); err != ErrInvalidToken {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestPasswords_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestPasswords_RejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}
