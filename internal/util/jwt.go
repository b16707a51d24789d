package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims issued by the identity provider.
type Claims struct {
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

type UserMetadata struct {
	Name string `json:"name"`
}

var validMethods = []string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// ValidateJWT verifies tokenString and returns its claims. keyMaterial is the
// shared secret for HMAC tokens or a PEM public key for RSA and ECDSA tokens.
func ValidateJWT(tokenString string, keyMaterial string) (*Claims, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if strings.HasPrefix(strings.TrimSpace(keyMaterial), "-----BEGIN") {
				return nil, errors.New("HMAC token presented but key material is a public key")
			}
			return []byte(keyMaterial), nil
		case *jwt.SigningMethodRSA:
			return parsePublicKey[*rsa.PublicKey](keyMaterial, "RSA")
		case *jwt.SigningMethodECDSA:
			return parsePublicKey[*ecdsa.PublicKey](keyMaterial, "ECDSA")
		}
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc,
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func parsePublicKey[K *rsa.PublicKey | *ecdsa.PublicKey](pemKey, kind string) (K, error) {
	var zero K
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return zero, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return zero, fmt.Errorf("failed to parse public key: %w", err)
	}
	key, ok := pub.(K)
	if !ok {
		return zero, fmt.Errorf("public key is not %s", kind)
	}
	return key, nil
}
