package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

// JWTAuth authorizes requests carrying a bearer JWT signed by a key published
// at a JWKS endpoint. The verdict subject is the token's sub claim.
type JWTAuth struct {
	jwks  *keyfunc.JWKS
	realm string
}

func NewJWTAuth(jwksURL string, logger zerolog.Logger) (*JWTAuth, error) {
	options := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error().Err(err).Msg("jwks refresh failed")
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	jwks, err := keyfunc.Get(jwksURL, options)
	if err != nil {
		return nil, fmt.Errorf("auth: could not load jwks from %s: %w", jwksURL, err)
	}

	return &JWTAuth{jwks: jwks, realm: defaultRealm}, nil
}

func (a *JWTAuth) Authorize(r *http.Request) Verdict {
	raw, ok := cutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return Verdict{Reason: "missing bearer token"}
	}

	token, err := jwt.Parse(raw, a.jwks.Keyfunc)
	if err != nil {
		return Verdict{Reason: "failed to parse the JWT"}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Verdict{Reason: "the token is not valid"}
	}

	sub, _ := claims["sub"].(string)

	return Verdict{Allowed: true, Subject: sub}
}

func (a *JWTAuth) Challenge() string {
	return fmt.Sprintf("Bearer realm=%q", a.realm)
}

// Close stops the background JWKS refresh.
func (a *JWTAuth) Close() {
	a.jwks.EndBackground()
}
