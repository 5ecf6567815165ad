package jwt

import (
	"fmt"
	"time"

	natsjwt "github.com/nats-io/jwt/v2"
)

// ResponseTTL is the fixed validity of an authorization response, success and
// error paths alike. It is deliberately much longer than realistic processing
// time so the broker's own request timeout fires first, never the inverse.
const ResponseTTL = 60 * time.Second

// IssueAuthResponse creates and signs the authorization response returned to
// the broker. Exactly one of userJWT and errMsg should be set: a grant on
// success, a human-readable error otherwise. A response is produced for both
// paths so the broker always receives a parseable artifact.
func IssueAuthResponse(userNkey, serverID string, signer Signer, userJWT, errMsg string) (string, error) {
	claims := natsjwt.NewAuthorizationResponseClaims(userNkey)
	claims.Audience = serverID
	claims.Jwt = userJWT
	claims.Error = errMsg
	claims.Expires = time.Now().Add(ResponseTTL).Unix()

	token, err := claims.Encode(NewSignerAdapter(signer))
	if err != nil {
		return "", fmt.Errorf("encoding authorization response: %w", err)
	}

	return token, nil
}
