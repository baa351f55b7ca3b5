package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"loved-api/internal/config"
)

func newTestService(t *testing.T, expiration time.Duration) *Service {
	t.Helper()
	svc, err := NewService(&config.JWTConfig{Secret: "dev", Expiration: expiration})
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}
	return svc
}

func TestValidateToken(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.GenerateToken(3178418, "Tsuki")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != 3178418 {
		t.Errorf("Expected user ID 3178418, got %d", claims.UserID)
	}
	if claims.Name != "Tsuki" {
		t.Errorf("Expected name Tsuki, got %s", claims.Name)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(t, -time.Hour)

	token, err := svc.GenerateToken(1, "expired")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenFromOtherKey(t *testing.T) {
	issuer := newTestService(t, time.Hour)
	verifier := newTestService(t, time.Hour)

	token, err := issuer.GenerateToken(1, "someone")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("Should reject token signed by a different key")
	}
}

func TestPublicKeyOnlyService(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	privateBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		t.Fatalf("Failed to marshal private key: %v", err)
	}
	publicBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("Failed to marshal public key: %v", err)
	}

	privatePEM := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privateBytes}))
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicBytes}))

	issuer, err := NewService(&config.JWTConfig{
		Secret:     strings.ReplaceAll(privatePEM, "\n", `\n`),
		Expiration: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to create issuer: %v", err)
	}
	verifier, err := NewService(&config.JWTConfig{Secret: publicPEM, Expiration: time.Hour})
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}

	token, err := issuer.GenerateToken(42, "captain")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	claims, err := verifier.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected user ID 42, got %d", claims.UserID)
	}

	if _, err := verifier.GenerateToken(42, "captain"); err == nil {
		t.Error("Public key only service should not sign tokens")
	}
}

func TestGenerateRandomToken(t *testing.T) {
	token1, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate random token: %v", err)
	}
	token2, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("Failed to generate second random token: %v", err)
	}

	if token1 == "" || token1 == token2 {
		t.Error("Random tokens should be non-empty and different")
	}
}
