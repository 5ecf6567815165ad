// Package auth implements the broker auth callout: request handling,
// permission resolution, and the NATS service loop.
package auth

import (
	"context"
	"errors"
	"fmt"

	natsjwt "github.com/nats-io/jwt/v2"

	"github.com/hdnguyen/chatauth/identity"
	"github.com/hdnguyen/chatauth/jwt"
	"github.com/hdnguyen/chatauth/store"
)

// IdentityStore looks up identities by username. A missing identity is
// (nil, nil), not an error.
type IdentityStore interface {
	FindByUsername(ctx context.Context, username string) (*store.User, error)
}

// SessionTracker records client connections.
type SessionTracker interface {
	Upsert(ctx context.Context, p store.SessionUpsert) (*store.AuthSession, error)
}

// Handler drives a single authentication request from decoded broker claims
// to a signed response: parse token, verify credential, record session,
// resolve permissions, issue grant. All collaborators are injected and
// request-scoped in use; the handler itself holds only read-only state and
// is safe for concurrent invocations.
type Handler struct {
	users    IdentityStore
	resolver *PermissionResolver
	sessions SessionTracker
	signer   jwt.Signer
	external *identity.ExternalVerifier
	logger   Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets a custom logger for the handler.
func WithHandlerLogger(l Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithExternalVerifier enables the external-IdP JWT form of the auth token.
func WithExternalVerifier(v *identity.ExternalVerifier) HandlerOption {
	return func(h *Handler) {
		h.external = v
	}
}

// NewHandler creates a Handler with the given collaborators.
func NewHandler(users IdentityStore, resolver *PermissionResolver, sessions SessionTracker, signer jwt.Signer, opts ...HandlerOption) (*Handler, error) {
	if users == nil {
		return nil, errors.New("identity store is required")
	}
	if resolver == nil {
		return nil, errors.New("permission resolver is required")
	}
	if sessions == nil {
		return nil, errors.New("session tracker is required")
	}
	if signer == nil {
		return nil, errors.New("issuer signer is required")
	}

	h := &Handler{
		users:    users,
		resolver: resolver,
		sessions: sessions,
		signer:   signer,
		logger:   &defaultLogger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle processes one raw authorization request and returns the encoded,
// signed response token. Both outcomes of the decision produce a response;
// an error is returned only when no response can be produced at all, in
// which case the broker-side timeout answers the client.
func (h *Handler) Handle(ctx context.Context, request []byte) (string, error) {
	authReq, err := natsjwt.DecodeAuthorizationRequestClaims(string(request))
	if err != nil {
		return "", fmt.Errorf("decoding authorization request: %w", err)
	}

	userJWT, authErr := h.authenticate(ctx, authReq)
	if authErr != nil {
		h.logger.Warn("denied: %v", authErr)
		return jwt.IssueAuthResponse(authReq.UserNkey, authReq.Server.ID, h.signer, "", authErr.Reason)
	}

	return jwt.IssueAuthResponse(authReq.UserNkey, authReq.Server.ID, h.signer, userJWT, "")
}

// authenticate runs the decision pipeline and returns the signed user grant.
// Every failure is an AuthError whose Reason is safe to put on the wire.
// A panic anywhere in the pipeline is converted to an internal error so no
// fault propagates past this boundary.
func (h *Handler) authenticate(ctx context.Context, req *natsjwt.AuthorizationRequestClaims) (grant string, authErr *AuthError) {
	defer func() {
		if r := recover(); r != nil {
			grant = ""
			authErr = NewAuthError("", "authenticate", fmt.Sprintf("internal server error: %v", r), nil)
		}
	}()

	opts := req.ConnectOptions

	if opts.Token == "" {
		return "", NewAuthError("", "parse_token", "no auth_token in request", nil)
	}

	var (
		username     string
		token        identity.AuthToken
		usedExternal bool
	)
	if h.external != nil && identity.LooksLikeJWT(opts.Token) {
		u, err := h.external.Verify(opts.Token)
		if err != nil {
			return "", NewAuthError("", "verify_signature", "invalid auth token signature", err)
		}
		username = u
		usedExternal = true
	} else {
		t, err := identity.ParseAuthToken(opts.Token)
		if err != nil {
			return "", NewAuthError("", "parse_token", fmt.Sprintf("invalid auth token format: %v", err), err)
		}
		token = t
		username = t.User
	}

	// The verifying key is the identity's registered public key, so the
	// lookup happens before the signature check. A key inside the token
	// would let callers assert their own identity.
	user, err := h.users.FindByUsername(ctx, username)
	if err != nil {
		return "", NewAuthError(username, "resolve_identity", fmt.Sprintf("internal server error: %v", err), err)
	}
	if user == nil {
		return "", NewAuthError(username, "resolve_identity", fmt.Sprintf("user %s not found", username), nil)
	}

	if !user.HasBrokerCredential() {
		return "", NewAuthError(username, "check_credential", fmt.Sprintf("no active credential for user %s", username), nil)
	}

	if !usedExternal {
		ok, reason := identity.Verify(token, user.NatsPublicKey)
		if !ok {
			return "", NewAuthError(username, "verify_signature", "invalid auth token signature", errors.New(reason))
		}
	}

	// Session bookkeeping is a side effect; failures are logged, never
	// fatal to the authorization decision.
	clientID := opts.Name
	if clientID == "" {
		clientID = req.UserNkey
	}
	if _, err := h.sessions.Upsert(ctx, store.SessionUpsert{
		UserID:    user.ID,
		ClientID:  clientID,
		IPAddress: req.ClientInformation.Host,
		UserAgent: connectUserAgent(opts),
	}); err != nil {
		h.logger.Warn("session upsert failed for user %s (client %s): %v", username, clientID, err)
	}

	pub, sub, err := h.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return "", NewAuthError(username, "resolve_permissions", fmt.Sprintf("internal server error: %v", err), err)
	}

	account := "default_account"
	if user.Account != nil {
		account = user.Account.Name
	}

	grant, err = jwt.IssueUserGrant(username, req.UserNkey, h.signer, pub, sub, account)
	if err != nil {
		return "", NewAuthError(username, "issue_grant", fmt.Sprintf("internal server error: %v", err), err)
	}

	h.logger.Info("authorized user %s (client %s, account %s, %d pub / %d sub subjects)",
		username, clientID, account, len(pub), len(sub))
	return grant, nil
}

// connectUserAgent derives a user-agent string from the client library's
// self-reported language and version.
func connectUserAgent(opts natsjwt.ConnectOptions) string {
	if opts.Lang == "" {
		return opts.Version
	}
	if opts.Version == "" {
		return opts.Lang
	}
	return opts.Lang + "/" + opts.Version
}
