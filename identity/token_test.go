package identity

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/nats-io/nkeys"
)

func TestParseAuthToken(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "valid",
			raw:  `{"user":"alice","signature":"c2ln"}`,
		},
		{
			name:    "not json",
			raw:     "alice:secret",
			wantErr: "decoding auth token",
		},
		{
			name:    "missing user",
			raw:     `{"signature":"c2ln"}`,
			wantErr: "missing user field",
		},
		{
			name:    "missing signature",
			raw:     `{"user":"alice"}`,
			wantErr: "missing signature field",
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: "decoding auth token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ParseAuthToken(tt.raw)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ParseAuthToken() error = %v", err)
				}
				if token.User != "alice" {
					t.Errorf("token.User = %q, want %q", token.User, "alice")
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestVerify_ValidSignature(t *testing.T) {
	kp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("creating user keypair: %v", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("getting public key: %v", err)
	}

	token, err := SignAuthToken("alice", kp)
	if err != nil {
		t.Fatalf("SignAuthToken() error = %v", err)
	}

	ok, result := Verify(token, pub)
	if !ok {
		t.Fatalf("Verify() = false, reason %q", result)
	}
	if result != "alice" {
		t.Errorf("Verify() identity = %q, want %q", result, "alice")
	}
}

func TestVerify_MutatedSignature(t *testing.T) {
	kp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("creating user keypair: %v", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("getting public key: %v", err)
	}

	token, err := SignAuthToken("alice", kp)
	if err != nil {
		t.Fatalf("SignAuthToken() error = %v", err)
	}

	sig, err := base64.StdEncoding.DecodeString(token.Signature)
	if err != nil {
		t.Fatalf("decoding signature: %v", err)
	}

	// Any single-bit mutation must fail verification.
	for _, pos := range []int{0, len(sig) / 2, len(sig) - 1} {
		mutated := append([]byte(nil), sig...)
		mutated[pos] ^= 0x01
		bad := AuthToken{User: token.User, Signature: base64.StdEncoding.EncodeToString(mutated)}
		if ok, _ := Verify(bad, pub); ok {
			t.Errorf("Verify() = true for signature mutated at byte %d", pos)
		}
	}
}

func TestVerify_WrongKey(t *testing.T) {
	kp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("creating user keypair: %v", err)
	}
	otherKp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("creating other keypair: %v", err)
	}
	otherPub, err := otherKp.PublicKey()
	if err != nil {
		t.Fatalf("getting other public key: %v", err)
	}

	token, err := SignAuthToken("alice", kp)
	if err != nil {
		t.Fatalf("SignAuthToken() error = %v", err)
	}

	if ok, _ := Verify(token, otherPub); ok {
		t.Error("Verify() = true against a different identity's key")
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	kp, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("creating user keypair: %v", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		t.Fatalf("getting public key: %v", err)
	}

	tests := []struct {
		name      string
		token     AuthToken
		publicKey string
	}{
		{"empty public key", AuthToken{User: "alice", Signature: "c2ln"}, ""},
		{"garbage public key", AuthToken{User: "alice", Signature: "c2ln"}, "not-a-key"},
		{"non-base64 signature", AuthToken{User: "alice", Signature: "%%%"}, pub},
		{"empty signature", AuthToken{User: "alice", Signature: ""}, pub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Verify(tt.token, tt.publicKey)
			if ok {
				t.Error("Verify() = true, want false")
			}
			if reason == "" {
				t.Error("expected a diagnostic reason")
			}
		})
	}
}

func TestAuthToken_EncodeRoundTrip(t *testing.T) {
	token := AuthToken{User: "alice", Signature: "c2ln"}
	raw, err := token.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	parsed, err := ParseAuthToken(raw)
	if err != nil {
		t.Fatalf("ParseAuthToken() error = %v", err)
	}
	if parsed != token {
		t.Errorf("round trip = %+v, want %+v", parsed, token)
	}
}

func TestLooksLikeJWT(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"eyJh.eyJz.c2ln", true},
		{`{"user":"alice","signature":"c2ln"}`, false},
		{"alice:secret", false},
		{"a.b", false},
	}
	for _, tt := range tests {
		if got := LooksLikeJWT(tt.raw); got != tt.want {
			t.Errorf("LooksLikeJWT(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
