// Package authn implements the bearer-token auth shim every HTTP endpoint
// in this service runs requests through: HS256 JWT verification plus a
// dev-mode bypass, and a roles/scope claim lookup for role checks.
//
// Grounded on original_source/app/infra/auth.py.
package authn

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Roles recognized by this service.
const (
	RoleOperator    = "operator"
	RoleDataSteward = "data_steward"
	RoleAuditor     = "auditor"
)

// Claims is the decoded JWT payload, normalized so Roles is always
// populated (from a "roles" claim, or else a space-delimited "scope").
type Claims struct {
	Subject string
	Roles   []string
	Raw     map[string]any
}

// HasRole reports whether claims carries any of allowed.
func (c Claims) HasRole(allowed ...string) bool {
	for _, r := range c.Roles {
		for _, a := range allowed {
			if r == a {
				return true
			}
		}
	}
	return false
}

var (
	ErrMissingBearer = errors.New("authn: missing bearer token")
	ErrInvalidToken  = errors.New("authn: invalid token")
	ErrForbidden     = errors.New("authn: insufficient role")
)

// Verifier validates bearer tokens against one HS256 secret, with an
// audience/issuer check matching JWT_AUD/JWT_ISS, and a "none" mode used
// only for local development where every request is treated as an
// operator.
type Verifier struct {
	Mode      string // "none" bypasses; any other value (config: "jwt_hs256") verifies HS256
	Secret    []byte
	Audience  string
	Issuer    string
}

// NewVerifier builds a Verifier. mode "none" bypasses verification
// entirely; any other value requires a valid HS256 token.
func NewVerifier(mode string, secret []byte, audience, issuer string) *Verifier {
	return &Verifier{Mode: mode, Secret: secret, Audience: audience, Issuer: issuer}
}

// Authenticate extracts and verifies the bearer token from r, returning
// normalized Claims.
func (v *Verifier) Authenticate(r *http.Request) (Claims, error) {
	if v.Mode == "none" {
		return Claims{Subject: "dev-user", Roles: []string{RoleOperator}}, nil
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return Claims{}, ErrMissingBearer
	}
	token := strings.TrimSpace(auth[len(prefix):])

	raw, err := v.decodeAndVerify(token)
	if err != nil {
		return Claims{}, err
	}

	claims := Claims{Raw: raw}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if rolesAny, ok := raw["roles"].([]any); ok {
		for _, r := range rolesAny {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	}
	if len(claims.Roles) == 0 {
		if scope, ok := raw["scope"].(string); ok {
			for _, s := range strings.Fields(scope) {
				claims.Roles = append(claims.Roles, s)
			}
		}
	}
	return claims, nil
}

// RequireRole returns ErrForbidden unless claims carries one of allowed.
func RequireRole(claims Claims, allowed ...string) error {
	if !claims.HasRole(allowed...) {
		return ErrForbidden
	}
	return nil
}

func (v *Verifier) decodeAndVerify(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	signingInput := parts[0] + "." + parts[1]

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad signature encoding", ErrInvalidToken)
	}
	mac := hmac.New(sha256.New, v.Secret)
	mac.Write([]byte(signingInput))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad payload encoding", ErrInvalidToken)
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("%w: bad payload json", ErrInvalidToken)
	}

	if v.Audience != "" {
		if aud, _ := claims["aud"].(string); aud != v.Audience {
			return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
		}
	}
	if v.Issuer != "" {
		if iss, _ := claims["iss"].(string); iss != v.Issuer {
			return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
		}
	}
	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
	}

	return claims, nil
}
