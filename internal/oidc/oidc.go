package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/yangjihun/FM-COMMIT/internal/apperr"
)

// ErrInvalidCredential is returned when an identity token is malformed,
// expired, issued for another audience or lacks a usable e-mail.
var ErrInvalidCredential = apperr.New(apperr.Upstream, "invalid credential")

// Identity is the verified subset of identity-token claims we rely on.
type Identity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// CredentialVerifier validates a third-party identity token.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, raw string) (*Identity, error)
}

// IDToken is a minimal interface for token payloads that allows extracting claims
// It is satisfied by *oidc.IDToken and by test fakes.
type IDToken interface {
	Claims(v interface{}) error
}

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer (https://accounts.google.com for Google
// sign-in) and checks tokens against clientID as audience.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	if clientID == "" {
		return nil, errors.New("oidc: client id is required")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// VerifyCredential verifies signature, issuer, audience and expiry.
func (v *Verifier) VerifyCredential(ctx context.Context, raw string) (*Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Wrap(ErrInvalidCredential, errors.New("token is required"))
	}
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, apperr.Wrap(ErrInvalidCredential, err)
	}
	return identityFromToken(idToken)
}

type googleClaims struct {
	Subject       string      `json:"sub"`
	Email         string      `json:"email"`
	EmailVerified interface{} `json:"email_verified"`
	Name          string      `json:"name"`
}

func identityFromToken(tok IDToken) (*Identity, error) {
	var c googleClaims
	if err := tok.Claims(&c); err != nil {
		return nil, apperr.Wrap(ErrInvalidCredential, err)
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return nil, apperr.Wrap(ErrInvalidCredential, errors.New("email claim missing"))
	}
	verified, known := parseBool(c.EmailVerified)
	if known && !verified {
		return nil, apperr.Wrap(ErrInvalidCredential, errors.New("email not verified"))
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = email[:strings.IndexByte(email+"@", '@')]
	}
	return &Identity{Subject: c.Subject, Email: email, Name: name, EmailVerified: verified}, nil
}

// Google has sent email_verified both as a JSON bool and as a string.
func parseBool(v interface{}) (val, known bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
