// Package identity provides parsing and verification of the caller-supplied
// authentication credential.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nkeys"
)

// AuthToken is the caller-presented credential carried in the connect
// options' auth_token field: the claimed username plus a base64-encoded
// signature over the username, produced with the identity's nkey.
type AuthToken struct {
	User      string `json:"user"`
	Signature string `json:"signature"`
}

// ParseAuthToken decodes a JSON-serialized AuthToken. Both fields are
// required; anything else fails closed.
func ParseAuthToken(raw string) (AuthToken, error) {
	var t AuthToken
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return AuthToken{}, fmt.Errorf("decoding auth token: %w", err)
	}
	if t.User == "" {
		return AuthToken{}, errors.New("missing user field")
	}
	if t.Signature == "" {
		return AuthToken{}, errors.New("missing signature field")
	}
	return t, nil
}

// Encode serializes the token to its wire form.
func (t AuthToken) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encoding auth token: %w", err)
	}
	return string(data), nil
}

// SignAuthToken builds a token for the given username, signing the username
// bytes with the supplied user keypair. The service only verifies tokens;
// this is for clients and tests.
func SignAuthToken(username string, kp nkeys.KeyPair) (AuthToken, error) {
	sig, err := kp.Sign([]byte(username))
	if err != nil {
		return AuthToken{}, fmt.Errorf("signing auth token: %w", err)
	}
	return AuthToken{
		User:      username,
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// LooksLikeJWT reports whether the raw credential is a three-segment JWT
// rather than a JSON auth token.
func LooksLikeJWT(raw string) bool {
	return !strings.HasPrefix(strings.TrimSpace(raw), "{") && strings.Count(raw, ".") == 2
}
