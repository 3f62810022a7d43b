package domain

import "errors"

var (
	// Common domain errors
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrSessionNotFound      = errors.New("chat session not found")
	ErrEmptySession         = errors.New("chat session has no messages")
	ErrDuplicateMessage     = errors.New("message id already present in session")
	ErrIdentityUnresponsive = errors.New("identity provider did not report an auth state in time")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrProviderUnavailable  = errors.New("provider not configured")
	ErrConversationBusy     = errors.New("a reply is still pending")
)
