package jwt

import (
	"fmt"
	"io"
	"time"

	natsjwt "github.com/nats-io/jwt/v2"
)

// GrantTTL is the fixed validity of an issued user grant. It is independent
// of any credential expiry stored on the identity itself.
const GrantTTL = 24 * time.Hour

// IssueUserGrant creates and signs the NATS user JWT embedded in a successful
// authorization response.
// Parameters:
//   - username: the identity's username (name claim, for display)
//   - userNkey: the connection's public user nkey (subject of the JWT)
//   - signer: the issuer account signer
//   - allowedPub, allowedSub: literal subjects the user may publish/subscribe to
//   - account: the account name (audience of the JWT)
//
// Returns the signed JWT string.
func IssueUserGrant(username, userNkey string, signer Signer, allowedPub, allowedSub []string, account string) (string, error) {
	claims := natsjwt.NewUserClaims(userNkey)
	claims.Name = username
	claims.Audience = account
	claims.Expires = time.Now().Add(GrantTTL).Unix()

	claims.Permissions.Pub.Allow = natsjwt.StringList(allowedPub)
	claims.Permissions.Sub.Allow = natsjwt.StringList(allowedSub)

	// Unlimited by default; the broker expects -1 here.
	claims.Limits.Subs = natsjwt.NoLimit
	claims.Limits.Data = natsjwt.NoLimit
	claims.Limits.Payload = natsjwt.NoLimit

	token, err := claims.Encode(NewSignerAdapter(signer))
	if err != nil {
		return "", fmt.Errorf("encoding user grant: %w", err)
	}

	return token, nil
}

// SignerAdapter adapts a Signer interface to nkeys.KeyPair for JWT encoding.
// This allows using our Signer interface with the nats-io/jwt library.
type SignerAdapter struct {
	signer Signer
}

// NewSignerAdapter creates a new SignerAdapter from a Signer.
func NewSignerAdapter(s Signer) SignerAdapter {
	return SignerAdapter{signer: s}
}

func (s SignerAdapter) Seed() ([]byte, error) {
	return nil, fmt.Errorf("seed not available")
}

func (s SignerAdapter) PublicKey() (string, error) {
	return s.signer.PublicKey(), nil
}

func (s SignerAdapter) PrivateKey() ([]byte, error) {
	return nil, fmt.Errorf("private key not available")
}

func (s SignerAdapter) Sign(input []byte) ([]byte, error) {
	return s.signer.Sign(input)
}

func (s SignerAdapter) Verify(input, sig []byte) error {
	return fmt.Errorf("verify not implemented")
}

func (s SignerAdapter) Wipe() {}

func (s SignerAdapter) Open(input []byte, sender string) ([]byte, error) {
	return nil, fmt.Errorf("open not implemented")
}

func (s SignerAdapter) Seal(input []byte, recipient string) ([]byte, error) {
	return nil, fmt.Errorf("seal not implemented")
}

func (s SignerAdapter) SealWithRand(input []byte, recipient string, rr io.Reader) ([]byte, error) {
	return nil, fmt.Errorf("seal with rand not implemented")
}
