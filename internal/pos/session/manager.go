// Package session signs an idle user out after a warning countdown.
//
//	idle-active --(duration - 10s idle)--> warning --(10s, no extend)--> expired
//	warning --extend--> idle-active
//
// Activity resets the idle timer only in idle-active. Once the warning has
// started only Extend brings the session back.
package session

import (
	"context"
	"math"
	"sync"
	"time"

	"restaurant-pos/internal/common/clock"
	"restaurant-pos/internal/common/logger"
)

const WarningWindow = 10 * time.Second

type State string

const (
	StateDisabled State = "disabled"
	StateActive   State = "idle-active"
	StateWarning  State = "warning"
	StateExpired  State = "expired"
	StateStopped  State = "stopped"
)

// SignOutFunc is invoked once on expiry with automatic set.
type SignOutFunc func(ctx context.Context, automatic bool) error

// Snapshot is the observable SessionActivityState.
type Snapshot struct {
	State                     State         `json:"state"`
	SessionDuration           time.Duration `json:"session_duration"`
	LastActivityAt            time.Time     `json:"last_activity_at"`
	WarningActive             bool          `json:"warning_active"`
	SecondsRemainingInWarning int           `json:"seconds_remaining_in_warning"`
}

type Manager struct {
	clock    clock.Clock
	duration time.Duration
	signOut  SignOutFunc
	onChange func(Snapshot)
	log      *logger.Logger

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	warningEnds  time.Time
	timer        clock.Timer
	gen          uint64
}

type Option func(*Manager)

// WithObserver is called after every state change, outside the lock.
func WithObserver(f func(Snapshot)) Option { return func(m *Manager) { m.onChange = f } }

func WithLogger(lg *logger.Logger) Option { return func(m *Manager) { m.log = lg } }

// New arms the idle timer. durationMinutes <= 0 disables the manager: no
// timer is armed and every call is a no-op.
func New(c clock.Clock, durationMinutes int, signOut SignOutFunc, opts ...Option) *Manager {
	m := &Manager{
		clock:    c,
		duration: time.Duration(durationMinutes) * time.Minute,
		signOut:  signOut,
		log:      logger.New("session"),
		state:    StateDisabled,
	}
	for _, o := range opts {
		o(m)
	}
	if durationMinutes <= 0 {
		return m
	}

	m.mu.Lock()
	m.state = StateActive
	m.lastActivity = c.Now()
	m.armIdleLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return m
}

// Activity records a pointer, key, scroll or touch event.
func (m *Manager) Activity() {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return
	}
	m.lastActivity = m.clock.Now()
	m.armIdleLocked()
	m.mu.Unlock()
}

// Extend is the explicit "stay signed in" decision. It restarts a full idle
// window from warning or idle-active.
func (m *Manager) Extend() bool {
	m.mu.Lock()
	if m.state != StateWarning && m.state != StateActive {
		m.mu.Unlock()
		return false
	}
	m.state = StateActive
	m.warningEnds = time.Time{}
	m.lastActivity = m.clock.Now()
	m.armIdleLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Info("session_extended", nil)
	m.notify(snap)
	return true
}

// Stop clears every timer. Call it when the identity goes away.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateDisabled || m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	m.state = StateStopped
	m.warningEnds = time.Time{}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) armIdleLocked() {
	m.stopTimerLocked()
	idle := m.duration - WarningWindow
	if idle < 0 {
		idle = 0
	}
	gen := m.gen
	m.timer = m.clock.AfterFunc(idle, func() { m.enterWarning(gen) })
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	// Callbacks already in flight carry the old generation and bail out.
	m.gen++
}

func (m *Manager) enterWarning(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateActive {
		m.mu.Unlock()
		return
	}
	m.state = StateWarning
	m.warningEnds = m.clock.Now().Add(WarningWindow)
	next := m.gen
	m.timer = m.clock.AfterFunc(WarningWindow, func() { m.expire(next) })
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Info("session_warning", map[string]any{"seconds_remaining": snap.SecondsRemainingInWarning})
	m.notify(snap)
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateWarning {
		m.mu.Unlock()
		return
	}
	m.state = StateExpired
	m.timer = nil
	m.warningEnds = time.Time{}
	m.gen++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Info("session_expired", map[string]any{"idle_since": snap.LastActivityAt})
	m.notify(snap)
	if m.signOut != nil {
		if err := m.signOut(context.Background(), true); err != nil {
			m.log.Error("auto_sign_out_failed", err, nil)
		}
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		State:           m.state,
		SessionDuration: m.duration,
		LastActivityAt:  m.lastActivity,
		WarningActive:   m.state == StateWarning,
	}
	if s.WarningActive {
		left := m.warningEnds.Sub(m.clock.Now())
		if left < 0 {
			left = 0
		}
		s.SecondsRemainingInWarning = int(math.Ceil(left.Seconds()))
	}
	return s
}

func (m *Manager) notify(s Snapshot) {
	if m.onChange != nil {
		m.onChange(s)
	}
}
