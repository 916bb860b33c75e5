package security

import (
	"context"
	"testing"
	"time"

	"codearena/internal/platform/config"
)

func initTestJWT(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTKey: []byte("test-secret"),
		JWTExp: time.Hour,
	}
	InitJWT()
}

func TestTokenRoundTrip(t *testing.T) {
	initTestJWT(t)

	token, err := GenerateToken("user-123", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	decoded, err := TokenAuth.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	claims, err := decoded.AsMap(context.Background())
	if err != nil {
		t.Fatalf("AsMap: %v", err)
	}

	userID, err := GetUserIDFromClaims(claims)
	if err != nil {
		t.Fatalf("GetUserIDFromClaims: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("user_id = %q, want user-123", userID)
	}

	role, err := GetUserRoleFromClaims(claims)
	if err != nil {
		t.Fatalf("GetUserRoleFromClaims: %v", err)
	}
	if role != "admin" {
		t.Errorf("role = %q, want admin", role)
	}
}

func TestClaimsMissingFields(t *testing.T) {
	if _, err := GetUserIDFromClaims(map[string]interface{}{}); err == nil {
		t.Error("expected error for missing user_id claim")
	}
	if _, err := GetUserRoleFromClaims(map[string]interface{}{"role": 42}); err == nil {
		t.Error("expected error for non-string role claim")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPasswordHash("hunter22", hash) {
		t.Error("correct password should verify")
	}
	if CheckPasswordHash("hunter23", hash) {
		t.Error("wrong password must not verify")
	}
}
