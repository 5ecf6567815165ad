package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/hdnguyen/chatauth/identity"
)

const (
	// DebugSubject is the NATS subject for auth debug requests.
	DebugSubject = "chatauth.debug"
)

// DebugRequest asks what a given identity would be authorized to do.
type DebugRequest struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// DebugResponse reports the identity's credential status and resolved
// permissions. It never contains a grant.
type DebugResponse struct {
	Username         string   `json:"username"`
	Account          string   `json:"account,omitempty"`
	CredentialActive bool     `json:"credential_active"`
	PasswordOK       bool     `json:"password_ok"`
	Pub              []string `json:"pub"`
	Sub              []string `json:"sub"`
	Error            string   `json:"error,omitempty"`
}

// DebugService answers permission-introspection requests over NATS. The
// password, when supplied, is checked against the stored bcrypt hash.
type DebugService struct {
	users    IdentityStore
	resolver *PermissionResolver
	config   CalloutConfig

	nc     *nats.Conn
	sub    *nats.Subscription
	logger Logger

	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// DebugOption configures a DebugService.
type DebugOption func(*DebugService)

// WithDebugLogger sets a custom logger for the debug service.
func WithDebugLogger(l Logger) DebugOption {
	return func(s *DebugService) {
		s.logger = l
	}
}

// NewDebugService creates a new DebugService.
func NewDebugService(users IdentityStore, resolver *PermissionResolver, config CalloutConfig, opts ...DebugOption) (*DebugService, error) {
	if users == nil {
		return nil, errors.New("identity store is required")
	}
	if resolver == nil {
		return nil, errors.New("permission resolver is required")
	}
	if err := validateCalloutAuth(config); err != nil {
		return nil, err
	}
	if config.NatsURL == "" {
		config.NatsURL = nats.DefaultURL
	}

	s := &DebugService{
		users:    users,
		resolver: resolver,
		config:   config,
		logger:   &defaultLogger{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start connects to NATS and begins handling debug requests.
// This method blocks until Stop is called or the context is cancelled.
func (s *DebugService) Start(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("chatauth-debug"),
	}

	switch {
	case s.config.NatsCredentials != "":
		opts = append(opts, nats.UserCredentials(s.config.NatsCredentials))
	case s.config.NatsNkey != "":
		opt, err := nats.NkeyOptionFromSeed(s.config.NatsNkey)
		if err != nil {
			return fmt.Errorf("loading nkey from %s: %w", s.config.NatsNkey, err)
		}
		opts = append(opts, opt)
	case s.config.NatsUser != "":
		opts = append(opts, nats.UserInfo(s.config.NatsUser, s.config.NatsPassword))
	}

	nc, err := nats.Connect(s.config.NatsURL, opts...)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	s.nc = nc

	sub, err := nc.Subscribe(DebugSubject, s.handleRequest)
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribing to %s: %w", DebugSubject, err)
	}
	s.sub = sub

	s.logger.Info("auth debug service started, listening on %s", DebugSubject)

	select {
	case <-ctx.Done():
	case <-s.done:
	}

	return s.shutdown()
}

// Stop signals the service to shut down gracefully.
func (s *DebugService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

func (s *DebugService) shutdown() error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.logger.Warn("error draining subscription: %v", err)
		}
	}
	s.wg.Wait()
	if s.nc != nil {
		s.nc.Close()
	}
	s.logger.Info("auth debug service stopped")
	return nil
}

func (s *DebugService) handleRequest(msg *nats.Msg) {
	s.wg.Add(1)
	defer s.wg.Done()

	resp := s.inspect(context.Background(), msg.Data)

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to encode debug response: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to send debug response: %v", err)
	}
}

// inspect resolves the identity's status the same way the callout handler
// would, minus session bookkeeping and grant issuance.
func (s *DebugService) inspect(ctx context.Context, request []byte) DebugResponse {
	var req DebugRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return DebugResponse{Error: fmt.Sprintf("invalid debug request: %v", err)}
	}
	if req.Username == "" {
		return DebugResponse{Error: "username is required"}
	}

	resp := DebugResponse{Username: req.Username, Pub: []string{}, Sub: []string{}}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		resp.Error = fmt.Sprintf("identity lookup failed: %v", err)
		return resp
	}
	if user == nil {
		resp.Error = fmt.Sprintf("user %s not found", req.Username)
		return resp
	}

	resp.CredentialActive = user.HasBrokerCredential()
	if user.Account != nil {
		resp.Account = user.Account.Name
	}
	if req.Password != "" {
		resp.PasswordOK = identity.CheckPassword(user.HashedPassword, req.Password) == nil
	}

	pub, sub, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		resp.Error = fmt.Sprintf("permission resolution failed: %v", err)
		return resp
	}
	resp.Pub = pub
	resp.Sub = sub

	return resp
}
