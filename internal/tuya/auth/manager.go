package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tuyabridge/internal/tuya"
)

// State is the credential lifecycle state
type State int

const (
	StateUnauthenticated State = iota
	StateAuthorizing
	StateAuthorized
	StateRefreshing
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthorizing:
		return "authorizing"
	case StateAuthorized:
		return "authorized"
	case StateRefreshing:
		return "refreshing"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// SafetyMargin is how far ahead of expiry a token set stops counting as valid
const SafetyMargin = 5 * time.Minute

// Refresher performs the provider-specific token refresh. The plain protocol
// refreshes over the network; QR-linked accounts may only extend locally.
type Refresher interface {
	RefreshToken(ctx context.Context, current *tuya.TokenSet) (*tuya.TokenSet, error)
}

// Listener observes token replacement so that both protocol clients and the
// persistence layer see the same new TokenSet
type Listener func(tokens *tuya.TokenSet)

// pendingRefresh collapses concurrent refresh calls into one in-flight
// network operation; every caller awaits the same settled result
type pendingRefresh struct {
	done   chan struct{}
	tokens *tuya.TokenSet
	err    error
}

// Manager owns the authoritative TokenSet and its lifecycle
type Manager struct {
	mu        sync.Mutex
	tokens    *tuya.TokenSet
	state     State
	pending   *pendingRefresh
	listeners []Listener
	timer     *time.Timer

	refresher Refresher
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a token manager in the unauthenticated state
func NewManager(refresher Refresher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		state:     StateUnauthenticated,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the authoritative TokenSet, or nil when unauthenticated
func (m *Manager) Current() *tuya.TokenSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// AddListener registers an observer notified after every token replacement
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// BeginAuthorizing marks that a QR code has been issued and a scan is awaited
func (m *Manager) BeginAuthorizing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthorizing
}

// SetTokens installs a new authoritative TokenSet (link completion or a
// restore from persisted credentials), reschedules the proactive refresh
// timer and notifies listeners
func (m *Manager) SetTokens(tokens *tuya.TokenSet) {
	m.mu.Lock()
	m.tokens = tokens
	m.state = StateAuthorized
	m.scheduleLocked(tokens)
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(tokens)
	}
}

// IsValid reports whether a TokenSet exists and its expiry is more than the
// safety margin in the future
func (m *Manager) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validLocked()
}

func (m *Manager) validLocked() bool {
	if m.tokens == nil {
		return false
	}
	return time.UnixMilli(m.tokens.ExpiresAt).After(m.now().Add(SafetyMargin))
}

// EnsureValid returns usable credentials, refreshing reactively when the
// current set is inside the safety margin. A TokenSet without a refresh token
// cannot self-heal, so its expiry is not used to gate requests.
func (m *Manager) EnsureValid(ctx context.Context) (*tuya.TokenSet, error) {
	m.mu.Lock()
	tokens := m.tokens
	valid := m.validLocked()
	m.mu.Unlock()

	if tokens == nil {
		return nil, fmt.Errorf("%w: no credentials, account must be linked", tuya.ErrAuthentication)
	}
	if valid || !tokens.CanRefresh() {
		return tokens, nil
	}
	return m.Refresh(ctx)
}

// Refresh replaces the TokenSet via the configured refresher. Concurrent
// callers collapse into one in-flight operation and all receive the same
// result. A hard provider rejection of the refresh token transitions to the
// terminal invalid state.
func (m *Manager) Refresh(ctx context.Context) (*tuya.TokenSet, error) {
	m.mu.Lock()
	if p := m.pending; p != nil {
		m.mu.Unlock()
		select {
		case <-p.done:
			return p.tokens, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.tokens == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: no credentials to refresh", tuya.ErrAuthentication)
	}

	p := &pendingRefresh{done: make(chan struct{})}
	m.pending = p
	current := m.tokens
	m.state = StateRefreshing
	m.mu.Unlock()

	tokens, err := m.refresher.RefreshToken(ctx, current)

	m.mu.Lock()
	m.pending = nil
	var listeners []Listener
	if err != nil {
		if errors.Is(err, tuya.ErrAuthentication) {
			// The provider rejected the refresh token itself; only a
			// re-link can recover
			m.state = StateInvalid
		} else {
			m.state = StateAuthorized
		}
	} else {
		m.tokens = tokens
		m.state = StateAuthorized
		m.scheduleLocked(tokens)
		listeners = append([]Listener(nil), m.listeners...)
	}
	m.mu.Unlock()

	// Settle the shared result before releasing the waiters
	p.tokens, p.err = tokens, err
	close(p.done)

	for _, l := range listeners {
		l(tokens)
	}
	return tokens, err
}

// scheduleLocked arms the proactive refresh timer ahead of expiry. Caller
// holds the mutex.
func (m *Manager) scheduleLocked(tokens *tuya.TokenSet) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if tokens == nil || !tokens.CanRefresh() {
		return
	}

	delay := time.UnixMilli(tokens.ExpiresAt).Sub(m.now()) - SafetyMargin
	if delay < time.Minute {
		delay = time.Minute
	}

	m.timer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := m.Refresh(ctx); err != nil {
			// Not fatal: reactive refresh on next use is still attempted
			m.logger.Warn("Proactive token refresh failed",
				"component", "auth",
				"error", err,
			)
		}
	})
}

// Invalidate drops the current credentials and returns to the
// unauthenticated state (re-link required)
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	m.state = StateUnauthenticated
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Close cancels the proactive refresh timer
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
