package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

const (
	// AuthCalloutSubject is the NATS subject for auth callout requests.
	AuthCalloutSubject = "$SYS.REQ.USER.AUTH"

	// ServerXKeyHeader is the header containing the server's xkey public key.
	ServerXKeyHeader = "Nats-Server-Xkey"
)

// CalloutConfig holds configuration for the auth callout service.
type CalloutConfig struct {
	// NatsURL is the NATS server URL.
	NatsURL string

	// NatsCredentials is the path to the credentials file for connecting to NATS.
	// Mutually exclusive with NatsNkey and NatsUser.
	NatsCredentials string

	// NatsNkey is the path to the nkey seed file for NATS authentication.
	// Mutually exclusive with NatsCredentials and NatsUser.
	NatsNkey string

	// NatsUser and NatsPassword authenticate with plain credentials.
	// Mutually exclusive with NatsCredentials and NatsNkey.
	NatsUser     string
	NatsPassword string

	// XKeySeed is the service's curve key seed for encryption/decryption.
	// Required for encrypted auth callout.
	XKeySeed string
}

// CalloutService handles NATS auth callout requests. Each request is served
// on its own goroutine; the handler and issuer keypair are read-only shared
// state, so requests never interfere with each other.
type CalloutService struct {
	handler *Handler
	config  CalloutConfig

	curveKeyPair nkeys.KeyPair
	nc           *nats.Conn
	sub          *nats.Subscription
	logger       Logger

	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// CalloutOption configures a CalloutService.
type CalloutOption func(*CalloutService)

// WithCalloutLogger sets a custom logger for the callout service.
func WithCalloutLogger(l Logger) CalloutOption {
	return func(s *CalloutService) {
		s.logger = l
	}
}

// NewCalloutService creates a new CalloutService.
func NewCalloutService(handler *Handler, config CalloutConfig, opts ...CalloutOption) (*CalloutService, error) {
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if err := validateCalloutAuth(config); err != nil {
		return nil, err
	}
	if config.NatsURL == "" {
		config.NatsURL = nats.DefaultURL
	}
	if os.Getenv("NATS_URL") != "" {
		config.NatsURL = os.Getenv("NATS_URL")
	}

	s := &CalloutService{
		handler: handler,
		config:  config,
		logger:  &defaultLogger{},
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Parse xkey seed if provided
	if config.XKeySeed != "" {
		kp, err := nkeys.FromSeed([]byte(config.XKeySeed))
		if err != nil {
			return nil, fmt.Errorf("parsing xkey seed: %w", err)
		}
		s.curveKeyPair = kp
	}

	return s, nil
}

// validateCalloutAuth checks that exactly one NATS authentication method is set.
func validateCalloutAuth(config CalloutConfig) error {
	methods := 0
	if config.NatsCredentials != "" {
		methods++
	}
	if config.NatsNkey != "" {
		methods++
	}
	if config.NatsUser != "" {
		methods++
	}
	if methods == 0 {
		return errors.New("NATS authentication required: set NatsCredentials, NatsNkey, or NatsUser")
	}
	if methods > 1 {
		return errors.New("NatsCredentials, NatsNkey, and NatsUser are mutually exclusive")
	}
	return nil
}

// Start connects to NATS and begins handling auth callout requests.
// This method blocks until Stop is called or the context is cancelled.
func (s *CalloutService) Start(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("chatauth-callout"),
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

	sub, err := nc.Subscribe(AuthCalloutSubject, s.handleRequest)
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribing to %s: %w", AuthCalloutSubject, err)
	}
	s.sub = sub

	s.logger.Info("auth callout service started, listening on %s", AuthCalloutSubject)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	case <-s.done:
		s.logger.Info("stop requested, shutting down")
	}

	return s.shutdown()
}

// Stop signals the service to shut down gracefully.
func (s *CalloutService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// shutdown drains the subscription, waits for in-flight requests, and closes
// the connection.
func (s *CalloutService) shutdown() error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.logger.Warn("error draining subscription: %v", err)
		}
	}

	s.wg.Wait()

	if s.nc != nil {
		s.nc.Close()
	}

	s.logger.Info("auth callout service stopped")
	return nil
}

// handleRequest dispatches each inbound request to its own goroutine so slow
// store queries on one connection attempt never delay another.
func (s *CalloutService) handleRequest(msg *nats.Msg) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(msg)
	}()
}

// process handles one auth callout request end to end.
func (s *CalloutService) process(msg *nats.Msg) {
	// A request with no reply subject is already expired or answered;
	// a second reply would be rejected anyway.
	if msg.Reply == "" {
		s.logger.Warn("dropping auth request without reply subject")
		return
	}

	ctx := context.Background()

	serverXKey := ""
	if msg.Header != nil {
		serverXKey = msg.Header.Get(ServerXKeyHeader)
	}

	requestData := msg.Data
	if s.curveKeyPair != nil && serverXKey != "" {
		decrypted, err := s.curveKeyPair.Open(msg.Data, serverXKey)
		if err != nil {
			s.logger.Warn("failed to decrypt request: %v", err)
			return
		}
		requestData = decrypted
	}

	response, err := s.handler.Handle(ctx, requestData)
	if err != nil {
		// No response could be produced at all; the broker's own request
		// timeout answers the connecting client.
		s.logger.Warn("failed to produce auth response: %v", err)
		return
	}

	responseData := []byte(response)
	if s.curveKeyPair != nil && serverXKey != "" {
		encrypted, err := s.curveKeyPair.Seal(responseData, serverXKey)
		if err != nil {
			s.logger.Warn("failed to encrypt response: %v", err)
			return
		}
		responseData = encrypted
	}

	if err := msg.Respond(responseData); err != nil {
		s.logger.Warn("failed to send response: %v", err)
	}
}
