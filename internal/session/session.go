// Package session keeps the mutable connection and credential state shared
// by the stream and the transport router.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotConnected is returned when an operation needs the stream and it is down.
var ErrNotConnected = errors.New("not connected to the server")

// ErrNotLoggedIn is returned when a call needs credentials that are not set.
var ErrNotLoggedIn = errors.New("login required")

// Strategy chooses which transport trading commands use.
type Strategy int

const (
	// StrategyAuto uses the stream when connected and requests otherwise.
	StrategyAuto Strategy = iota
	// StrategyStreamOnly uses the stream and fails while disconnected.
	StrategyStreamOnly
	// StrategyRequestOnly always uses request/response.
	StrategyRequestOnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyStreamOnly:
		return "stream_only"
	case StrategyRequestOnly:
		return "request_only"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy accepts auto, stream_only (ws) and request_only (http).
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StrategyAuto, nil
	case "stream_only", "stream", "ws":
		return StrategyStreamOnly, nil
	case "request_only", "request", "http":
		return StrategyRequestOnly, nil
	default:
		return 0, fmt.Errorf("invalid strategy %q, must be one of [auto stream_only request_only]", s)
	}
}

// Credentials are the values issued at login.
type Credentials struct {
	AccountID    int64
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// Session is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	endpoint  string
	strategy  Strategy
	connected bool
	creds     Credentials
}

func New(endpoint string, strategy Strategy) *Session {
	return &Session{endpoint: endpoint, strategy: strategy}
}

func (s *Session) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoint
}

func (s *Session) Strategy() Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy
}

func (s *Session) SetStrategy(strategy Strategy) {
	s.mu.Lock()
	s.strategy = strategy
	s.mu.Unlock()
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

func (s *Session) SetCredentials(c Credentials) {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
}

func (s *Session) ClearCredentials() {
	s.SetCredentials(Credentials{})
}

// Token returns the access token or ErrNotLoggedIn.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.AccessToken == "" {
		return "", ErrNotLoggedIn
	}
	return s.creds.AccessToken, nil
}
