package adapter

import (
	"context"
	"errors"
	"fmt"
)

// ProviderUser is the identity provider's view of a signed-in account.
type ProviderUser struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// AuthErrorCode classifies identity provider failures.
type AuthErrorCode string

const (
	AuthInvalidCredential  AuthErrorCode = "invalid-credential"
	AuthEmailInUse         AuthErrorCode = "email-already-in-use"
	AuthWeakPassword       AuthErrorCode = "weak-password"
	AuthUnauthorizedDomain AuthErrorCode = "unauthorized-domain"
	AuthPopupClosed        AuthErrorCode = "popup-closed-by-user"
	AuthOther              AuthErrorCode = "other"
)

// AuthError is returned by IdentityProvider implementations.
type AuthError struct {
	Code AuthErrorCode
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth/" + string(e.Code)
	}
	return fmt.Sprintf("auth/%s: %v", e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func NewAuthError(code AuthErrorCode, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

// AuthCode extracts the code of err; unknown errors map to AuthOther.
func AuthCode(err error) AuthErrorCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return AuthOther
}

// IdentityProvider is the port for the remote identity collaborator.
type IdentityProvider interface {
	// Subscribe registers fn for auth state changes. fn receives nil when signed out.
	// Implementations call fn at least once with the current state.
	Subscribe(fn func(*ProviderUser)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*ProviderUser, error)
	SignUpWithPassword(ctx context.Context, email, password string) (*ProviderUser, error)
	// SignInWithPopup runs the interactive provider flow (Google account chooser).
	SignInWithPopup(ctx context.Context) (*ProviderUser, error)
	SignOut(ctx context.Context) error
}

type consentURLKey struct{}

// WithConsentURL returns a ctx whose interactive sign-in flows report the URL the
// user has to visit to fn, so it can be shown when no browser could be opened.
func WithConsentURL(ctx context.Context, fn func(url string)) context.Context {
	return context.WithValue(ctx, consentURLKey{}, fn)
}

// ReportConsentURL passes url to the hook installed by WithConsentURL, if any.
func ReportConsentURL(ctx context.Context, url string) {
	if fn, ok := ctx.Value(consentURLKey{}).(func(string)); ok && fn != nil {
		fn(url)
	}
}
