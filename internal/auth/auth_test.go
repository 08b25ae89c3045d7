package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestVerify_RoundTrip(t *testing.T) {
	v, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userID := uuid.New()
	token, err := v.Sign(userID, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Errorf("expected %s, got %s", userID, got)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	signer, _ := NewVerifier("secret-a")
	verifier, _ := NewVerifier("secret-b")

	token, err := signer.Sign(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected rejection for wrong secret")
	}
}

func TestVerify_Expired(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	token, err := v.Sign(uuid.New(), -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatal("expected rejection for expired token")
	}
}

func TestVerify_Garbage(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	if _, err := v.Verify("not-a-jwt"); err == nil {
		t.Fatal("expected rejection for malformed token")
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewVerifier(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
