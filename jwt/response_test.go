package jwt

import (
	"testing"

	natsjwt "github.com/nats-io/jwt/v2"
	"github.com/nats-io/nkeys"
)

func testServerID(t *testing.T) string {
	t.Helper()

	kp, err := nkeys.CreateServer()
	if err != nil {
		t.Fatalf("creating server keypair: %v", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("getting public key: %v", err)
	}
	return pub
}

func TestIssueAuthResponse_Success(t *testing.T) {
	signer, issuerPub := testIssuer(t)
	userNkey := testUserNkey(t)
	serverID := testServerID(t)

	grant, err := IssueUserGrant("alice", userNkey, signer, []string{"room.general"}, []string{"room.general"}, "CHAT")
	if err != nil {
		t.Fatalf("IssueUserGrant() error = %v", err)
	}

	token, err := IssueAuthResponse(userNkey, serverID, signer, grant, "")
	if err != nil {
		t.Fatalf("IssueAuthResponse() error = %v", err)
	}

	claims, err := natsjwt.DecodeAuthorizationResponseClaims(token)
	if err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if claims.Subject != userNkey {
		t.Errorf("Subject = %q, want %q", claims.Subject, userNkey)
	}
	if claims.Audience != serverID {
		t.Errorf("Audience = %q, want %q", claims.Audience, serverID)
	}
	if claims.Issuer != issuerPub {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, issuerPub)
	}
	if claims.Jwt != grant {
		t.Error("embedded grant differs from issued grant")
	}
	if claims.Error != "" {
		t.Errorf("Error = %q, want empty", claims.Error)
	}
	want := int64(ResponseTTL.Seconds())
	if got := claims.Expires - claims.IssuedAt; got < want-1 || got > want {
		t.Errorf("Expires - IssuedAt = %d, want %d", got, want)
	}
}

func TestIssueAuthResponse_Error(t *testing.T) {
	signer, _ := testIssuer(t)
	userNkey := testUserNkey(t)
	serverID := testServerID(t)

	token, err := IssueAuthResponse(userNkey, serverID, signer, "", "user ghost not found")
	if err != nil {
		t.Fatalf("IssueAuthResponse() error = %v", err)
	}

	claims, err := natsjwt.DecodeAuthorizationResponseClaims(token)
	if err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if claims.Error != "user ghost not found" {
		t.Errorf("Error = %q, want %q", claims.Error, "user ghost not found")
	}
	if claims.Jwt != "" {
		t.Error("error response carries a grant")
	}
	want := int64(ResponseTTL.Seconds())
	if got := claims.Expires - claims.IssuedAt; got < want-1 || got > want {
		t.Errorf("Expires - IssuedAt = %d, want %d", got, want)
	}
}
