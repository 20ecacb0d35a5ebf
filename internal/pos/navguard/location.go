package navguard

import (
	"context"
	"sync"
)

// Location is a Navigator and History for clients driven over an API: route
// changes and history pushes are queued for the client to apply.
type Location struct {
	mu     sync.Mutex
	path   string
	pushes []string
}

func NewLocation(initial string) *Location { return &Location{path: initial} }

func (l *Location) Navigate(_ context.Context, path string) error {
	l.mu.Lock()
	l.path = path
	l.mu.Unlock()
	return nil
}

// Set records a location change reported by the client.
func (l *Location) Set(path string) {
	l.mu.Lock()
	l.path = path
	l.mu.Unlock()
}

func (l *Location) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *Location) Push(path string) {
	l.mu.Lock()
	l.pushes = append(l.pushes, path)
	l.mu.Unlock()
}

// DrainPushes returns and forgets the queued history pushes.
func (l *Location) DrainPushes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pushes
	l.pushes = nil
	return out
}
