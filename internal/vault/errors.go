package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication indicates the credential exchange failed, or a 401
	// persisted after a single token refresh.
	ErrAuthentication = errors.New("vault: authentication failed")
	// ErrAlreadyExists indicates an invite targeting a member already in a
	// conflicting state.
	ErrAlreadyExists = errors.New("vault: member already exists")
	// ErrKeyNotReady indicates a confirm attempted before the member has
	// generated key material. Not retryable; the member must log in first.
	ErrKeyNotReady = errors.New("vault: member public key not available")
)

// APIError carries the status and body of an unclassified non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vault: api returned status %d: %s", e.Status, e.Body)
}
