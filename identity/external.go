package identity

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ExternalVerifier errors.
var (
	// ErrInvalidExternalToken is returned when an external JWT fails verification.
	ErrInvalidExternalToken = errors.New("invalid external token")
)

// ExternalVerifierConfig holds configuration for ExternalVerifier.
type ExternalVerifierConfig struct {
	// Issuer is the expected JWT issuer (iss claim).
	Issuer string `json:"issuer"`
	// PublicKey is the PEM-encoded public key for JWT signature verification
	// (base64-encoded PEM block).
	PublicKey string `json:"publicKey"`
}

// ExternalVerifier validates credentials issued by an external identity
// provider. Instead of the JSON auth token, the caller presents a standard
// RSA- or ECDSA-signed JWT; the sub claim names the identity.
type ExternalVerifier struct {
	issuer    string
	publicKey any
}

// NewExternalVerifier creates a new ExternalVerifier from the given configuration.
func NewExternalVerifier(cfg ExternalVerifierConfig) (*ExternalVerifier, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	pubKey, err := parsePublicKey(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	return &ExternalVerifier{
		issuer:    cfg.Issuer,
		publicKey: pubKey,
	}, nil
}

// parsePublicKey parses a PEM-encoded public key.
// pemDataB64 is base64 encoded.
func parsePublicKey(pemDataB64 string) (any, error) {
	pemData, err := base64.StdEncoding.DecodeString(pemDataB64)
	if err != nil {
		return nil, errors.New("failed to decode base64 PEM block")
	}
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		return pub, nil
	}

	rsaPub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err == nil {
		return rsaPub, nil
	}

	return nil, errors.New("unsupported public key format")
}

// Verify validates the external JWT and returns the username it names.
func (v *ExternalVerifier) Verify(tokenString string) (string, error) {
	token, err := v.parseAndVerifyJWT(tokenString)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidExternalToken
	}

	issuer, _ := claims["iss"].(string)
	if issuer != v.issuer {
		return "", fmt.Errorf("%w: unexpected issuer", ErrInvalidExternalToken)
	}

	username, _ := claims["sub"].(string)
	if username == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidExternalToken)
	}

	return username, nil
}

// parseAndVerifyJWT parses the JWT and verifies the signature.
func (v *ExternalVerifier) parseAndVerifyJWT(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		switch v.publicKey.(type) {
		case *rsa.PublicKey:
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
		case *ecdsa.PublicKey:
			if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
		}
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExternalToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidExternalToken
	}
	return token, nil
}
