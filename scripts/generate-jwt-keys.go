package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"loved-api/internal/auth"
	"loved-api/internal/config"
)

func main() {
	out := flag.String("out", "jwt-private-key.pem", "file to write the private key to")
	userID := flag.Int64("user", 0, "osu! user id to mint a development token for")
	name := flag.String("name", "", "username carried in the development token")
	ttl := flag.Duration("ttl", 24*time.Hour, "development token lifetime")
	flag.Parse()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		fail("Failed to generate key: %v", err)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		fail("Failed to marshal private key: %v", err)
	}
	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		fail("Failed to marshal public key: %v", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privateKeyBytes})
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes})

	if err := os.WriteFile(*out, privateKeyPEM, 0600); err != nil {
		fail("Failed to write private key file: %v", err)
	}

	fmt.Println("Generated ECDSA P-256 key pair for JWT signing.")
	fmt.Printf("Private key saved to: %s\n", *out)
	fmt.Println("\nThe API only needs the public key to validate tokens. Add to .env:")
	fmt.Println("----------------------------------------")
	fmt.Printf("JWT_SECRET=%s\n", singleLine(publicKeyPEM))

	if *userID == 0 {
		return
	}

	svc, err := auth.NewService(&config.JWTConfig{Secret: string(privateKeyPEM), Expiration: *ttl})
	if err != nil {
		fail("Failed to load signing key: %v", err)
	}
	token, err := svc.GenerateToken(*userID, *name)
	if err != nil {
		fail("Failed to generate token: %v", err)
	}

	fmt.Printf("\nDevelopment token for user %d (expires in %s):\n", *userID, *ttl)
	fmt.Println("----------------------------------------")
	fmt.Println(token)
}

// singleLine escapes newlines so the PEM fits on one .env line
func singleLine(pemBytes []byte) string {
	return strings.ReplaceAll(strings.TrimSpace(string(pemBytes)), "\n", `\n`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
