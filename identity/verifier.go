package identity

import (
	"encoding/base64"
	"fmt"

	"github.com/nats-io/nkeys"
)

// Verify checks the token's signature against the identity's registered
// public key. The key must be the one stored for the identity, never a value
// supplied inside the untrusted token itself. It returns (true, username)
// when the signature verifies and (false, reason) otherwise. Verification
// fails closed: parse errors and key errors are reasons, not panics.
func Verify(token AuthToken, publicKey string) (bool, string) {
	if publicKey == "" {
		return false, "no registered public key"
	}

	sig, err := base64.StdEncoding.DecodeString(token.Signature)
	if err != nil {
		return false, fmt.Sprintf("decoding signature: %v", err)
	}

	kp, err := nkeys.FromPublicKey(publicKey)
	if err != nil {
		return false, fmt.Sprintf("parsing public key: %v", err)
	}

	if err := kp.Verify([]byte(token.User), sig); err != nil {
		return false, "signature mismatch"
	}

	return true, token.User
}
