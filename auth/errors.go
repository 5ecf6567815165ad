package auth

import "fmt"

// AuthError represents a failed authentication decision. Reason is the
// message embedded in the signed error response returned to the broker;
// Phase and Err carry the internal detail that only reaches the logs.
type AuthError struct {
	Username string
	Phase    string
	Reason   string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error for user %q in %s: %s: %v", e.Username, e.Phase, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth error for user %q in %s: %s", e.Username, e.Phase, e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError.
func NewAuthError(username, phase, reason string, err error) *AuthError {
	return &AuthError{
		Username: username,
		Phase:    phase,
		Reason:   reason,
		Err:      err,
	}
}
