package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
)

// insecureToken is a minimal token that exposes claims parsed from a JWT payload.
type insecureToken struct {
	claims map[string]interface{}
}

func (t *insecureToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier implements a verifier that does NOT validate signatures.
// Only intended for local/integration tests under explicit opt-in via env var.
// When a client id is set the aud claim must still match it.
type InsecureVerifier struct {
	clientID string
}

func NewInsecureVerifier(clientID string) *InsecureVerifier {
	return &InsecureVerifier{clientID: clientID}
}

func (v *InsecureVerifier) VerifyCredential(ctx context.Context, raw string) (*Identity, error) {
	tok, err := parseUnverified(raw)
	if err != nil {
		return nil, apperr.Wrap(ErrInvalidCredential, err)
	}
	if v.clientID != "" && !audienceContains(tok.claims["aud"], v.clientID) {
		return nil, apperr.Wrap(ErrInvalidCredential, fmt.Errorf("audience mismatch"))
	}
	return identityFromToken(tok)
}

func parseUnverified(raw string) (*insecureToken, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 {
		return nil, errors.New("invalid token format")
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, err
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return &insecureToken{claims: claims}, nil
}

func audienceContains(aud interface{}, clientID string) bool {
	switch a := aud.(type) {
	case string:
		return a == clientID
	case []interface{}:
		for _, x := range a {
			if s, ok := x.(string); ok && s == clientID {
				return true
			}
		}
	}
	return false
}
