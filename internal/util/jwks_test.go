package util

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ecJWK(t *testing.T, key *ecdsa.PrivateKey) JWK {
	t.Helper()
	x := make([]byte, 32)
	y := make([]byte, 32)
	key.PublicKey.X.FillBytes(x)
	key.PublicKey.Y.FillBytes(y)
	return JWK{
		Kty: "EC",
		Crv: "P-256",
		Alg: "ES256",
		Kid: "k1",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}

func TestJWKSURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:54321/auth/v1/.well-known/jwks.json", JWKSURL("http://127.0.0.1:54321/"))
}

func TestFetchSigningKeyPEMVerifiesES256Tokens(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/.well-known/jwks.json", r.URL.Path)
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{
			{Kty: "RSA", Alg: "RS256"},
			ecJWK(t, key),
		}})
	}))
	defer srv.Close()

	pemKey, err := FetchSigningKeyPEM(context.Background(), srv.Client(), JWKSURL(srv.URL))
	require.NoError(t, err)
	assert.Contains(t, pemKey, "BEGIN PUBLIC KEY")

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, validClaims()).SignedString(key)
	require.NoError(t, err)
	claims, err := ValidateJWT(token, pemKey)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestFetchSigningKeyPEMNoUsableKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[{"kty":"RSA","alg":"RS256"}]}`))
	}))
	defer srv.Close()

	_, err := FetchSigningKeyPEM(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}

func TestFetchSigningKeyPEMBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := FetchSigningKeyPEM(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}

func TestJWKPEMRejectsBadCoordinates(t *testing.T) {
	_, err := JWK{Kty: "EC", Crv: "P-256", X: "!!", Y: "AA"}.PEM()
	assert.Error(t, err)

	_, err = JWK{Kty: "OKP", Crv: "Ed25519"}.PEM()
	assert.Error(t, err)
}
