package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timada-org/mcp-core/auth"
)

const testKID = "test-key"

func newJWKSServer(t *testing.T, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()

	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	body := fmt.Sprintf(`{"keys":[{"kty":"RSA","alg":"RS256","use":"sig","kid":%q,"n":%q,"e":%q}]}`, testKID, n, e)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	return ts
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKID

	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return signed
}

func TestJWTAuth(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ts := newJWKSServer(t, &key.PublicKey)

	a, err := auth.NewJWTAuth(ts.URL, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	authorize := func(header string) auth.Verdict {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		return a.Authorize(req)
	}

	t.Run("valid token", func(t *testing.T) {
		signed := signToken(t, key, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		verdict := authorize("Bearer " + signed)
		require.True(t, verdict.Allowed, verdict.Reason)
		assert.Equal(t, "user-1", verdict.Subject)
	})

	t.Run("expired token", func(t *testing.T) {
		signed := signToken(t, key, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		verdict := authorize("Bearer " + signed)
		assert.False(t, verdict.Allowed)
	})

	t.Run("tampered token", func(t *testing.T) {
		signed := signToken(t, key, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		verdict := authorize("Bearer " + signed + "x")
		assert.False(t, verdict.Allowed)
	})

	t.Run("missing header", func(t *testing.T) {
		verdict := authorize("")
		assert.False(t, verdict.Allowed)
	})
}

func TestJWTAuthBadURL(t *testing.T) {
	_, err := auth.NewJWTAuth("http://127.0.0.1:1/jwks.json", zerolog.Nop())
	require.Error(t, err)
}
