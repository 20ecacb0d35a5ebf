// Package auth ties the signed-in identity to the terminal: it arms the idle
// expiry on sign-in and runs sign-out through the navigation guard.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"restaurant-pos/internal/common/clock"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/pos/navguard"
	"restaurant-pos/internal/pos/session"
	"restaurant-pos/internal/pos/terminal"
)

var (
	ErrNavigationBlocked = errors.New("sign-out blocked by an order in progress")
	ErrNotSignedIn       = errors.New("not signed in")
)

const DefaultLogoutPath = "/login"

// Provider ends the identity at the identity service.
type Provider interface {
	SignOut(ctx context.Context, userID string) error
}

type ProviderFunc func(ctx context.Context, userID string) error

func (f ProviderFunc) SignOut(ctx context.Context, userID string) error { return f(ctx, userID) }

type Config struct {
	LogoutPath string
	// DefaultSessionMinutes applies when the identity carries no duration.
	// Zero leaves such sessions without expiry.
	DefaultSessionMinutes int
}

type Session struct {
	cfg      Config
	term     *terminal.Terminal
	provider Provider
	events   events.Publisher
	metrics  *metrics.Metrics
	clock    clock.Clock
	log      *logger.Logger

	mu       sync.Mutex
	identity *domain.Identity
	manager  *session.Manager
	observer func(session.Snapshot)
}

func New(cfg Config, term *terminal.Terminal, provider Provider, pub events.Publisher, m *metrics.Metrics, c clock.Clock) *Session {
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = DefaultLogoutPath
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Session{
		cfg:      cfg,
		term:     term,
		provider: provider,
		events:   pub,
		metrics:  m,
		clock:    c,
		log:      logger.New("auth"),
	}
}

// OnSessionChange registers f for every expiry state change of the next
// sign-in, e.g. to drive the countdown dialog.
func (s *Session) OnSessionChange(f func(session.Snapshot)) {
	s.mu.Lock()
	s.observer = f
	s.mu.Unlock()
}

// SignIn starts a session for id, replacing any current one.
func (s *Session) SignIn(id domain.Identity) {
	minutes := id.SessionDurationMinutes
	if minutes <= 0 {
		minutes = s.cfg.DefaultSessionMinutes
	}

	s.mu.Lock()
	prev := s.manager
	s.identity = &id
	observer := s.observer
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	opts := []session.Option{session.WithLogger(s.log.With(map[string]any{"user_id": id.UserID}))}
	if observer != nil {
		opts = append(opts, session.WithObserver(observer))
	}
	mgr := session.New(s.clock, minutes, s.SignOut, opts...)

	s.mu.Lock()
	s.manager = mgr
	s.mu.Unlock()

	s.term.SetOperator(id.UserID)
	s.log.Info("signed_in", map[string]any{"user_id": id.UserID, "session_minutes": minutes})
}

func (s *Session) Identity() (domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// Activity forwards user activity to the expiry manager.
func (s *Session) Activity() {
	if m := s.current(); m != nil {
		m.Activity()
	}
}

// Extend is the "stay signed in" answer to the expiry warning.
func (s *Session) Extend() bool {
	if m := s.current(); m != nil {
		return m.Extend()
	}
	return false
}

func (s *Session) Snapshot() session.Snapshot {
	if m := s.current(); m != nil {
		return m.Snapshot()
	}
	return session.Snapshot{State: session.StateStopped}
}

// SignOut ends the session. A voluntary sign-out with an order in progress
// is turned into a pending navigation and returns ErrNavigationBlocked. An
// automatic sign-out skips the guard and leaves the order bound to its
// table.
func (s *Session) SignOut(ctx context.Context, automatic bool) error {
	s.mu.Lock()
	id := s.identity
	mgr := s.manager
	s.mu.Unlock()
	if id == nil {
		return ErrNotSignedIn
	}

	if !automatic && !s.term.RequestExit(s.cfg.LogoutPath, navguard.TriggerSignOut) {
		return ErrNavigationBlocked
	}

	s.mu.Lock()
	if s.identity != id {
		s.mu.Unlock()
		return nil
	}
	s.identity = nil
	s.manager = nil
	s.mu.Unlock()

	if mgr != nil {
		mgr.Stop()
	}
	s.term.SetOperator("")

	var err error
	if s.provider != nil {
		if err = s.provider.SignOut(ctx, id.UserID); err != nil {
			err = fmt.Errorf("identity provider sign-out: %w", err)
			s.log.Error("provider_sign_out_failed", err, map[string]any{"user_id": id.UserID})
		}
	}
	if navErr := s.term.Location().Navigate(ctx, s.cfg.LogoutPath); navErr != nil {
		s.log.Warn("logout_navigation_failed", map[string]any{"error": navErr.Error()})
	}

	cause := "voluntary"
	if automatic {
		cause = "automatic"
	}
	if s.metrics != nil {
		s.metrics.SignOuts.WithLabelValues(cause).Inc()
	}
	if pubErr := s.events.Publish(ctx, domain.EventSessionSignedOut, domain.SignedOutMessage{
		UserID:    id.UserID,
		Automatic: automatic,
		Timestamp: s.clock.Now().UTC(),
	}); pubErr != nil {
		s.log.Warn("event_not_published", map[string]any{"routing_key": domain.EventSessionSignedOut, "error": pubErr.Error()})
	}
	s.log.Info("signed_out", map[string]any{"user_id": id.UserID, "cause": cause})
	return err
}

// ConfirmNavigation confirms the pending navigation and, when it was a
// sign-out, finishes signing out.
func (s *Session) ConfirmNavigation(ctx context.Context) (string, error) {
	intent := s.term.NavigationIntent()
	target, err := s.term.ConfirmNavigation(ctx)
	if err != nil || intent.Trigger != navguard.TriggerSignOut {
		return target, err
	}
	if err := s.SignOut(ctx, false); err != nil && !errors.Is(err, ErrNotSignedIn) {
		return target, err
	}
	return target, nil
}

func (s *Session) current() *session.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}
