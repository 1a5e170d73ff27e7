// Package auth provides request authentication for MCP and web servers:
// exact-match token auth (Bearer or Basic) and JWT validation against a JWKS
// endpoint. Authorizers are plain request predicates; Middleware adapts one
// into standard http middleware so transports stay framework-agnostic.
package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const defaultRealm = "mcp-core"

// Verdict is the outcome of evaluating a request's credentials.
type Verdict struct {
	Allowed bool
	Subject string
	Reason  string
}

// Authorizer turns an incoming request's credentials into a Verdict.
type Authorizer interface {
	// Authorize evaluates the request. It must not consume the request body.
	Authorize(r *http.Request) Verdict

	// Challenge is the WWW-Authenticate value sent with 401 responses.
	Challenge() string
}

// TokenAuth authorizes requests against a single configured secret. It
// accepts either of:
//
//	Authorization: Bearer <token>
//	Authorization: Basic base64(<any username>:<token>)
type TokenAuth struct {
	token string
	realm string
}

func NewTokenAuth(token string) *TokenAuth {
	return NewTokenAuthWithRealm(token, defaultRealm)
}

func NewTokenAuthWithRealm(token string, realm string) *TokenAuth {
	return &TokenAuth{token: token, realm: realm}
}

func (a *TokenAuth) Authorize(r *http.Request) Verdict {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Verdict{Reason: "missing authorization header"}
	}

	if token, ok := cutPrefix(header, "Bearer "); ok {
		if token == a.token {
			return Verdict{Allowed: true}
		}

		return Verdict{Reason: "invalid bearer token"}
	}

	if creds, ok := cutPrefix(header, "Basic "); ok {
		decoded, err := base64.StdEncoding.DecodeString(creds)
		if err != nil {
			return Verdict{Reason: "malformed basic credentials"}
		}

		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) == 2 && parts[1] == a.token {
			return Verdict{Allowed: true, Subject: parts[0]}
		}

		return Verdict{Reason: "invalid basic credentials"}
	}

	return Verdict{Reason: "unsupported authorization scheme"}
}

func (a *TokenAuth) Challenge() string {
	return fmt.Sprintf("Bearer, Basic realm=%q", a.realm)
}

// Middleware wraps next with an authorization check. Denied requests get a
// 401 carrying the authorizer's challenge and never reach next.
func Middleware(a Authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if verdict := a.Authorize(r); !verdict.Allowed {
			w.Header().Set("WWW-Authenticate", a.Challenge())
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func cutPrefix(s string, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}

	return s, false
}
