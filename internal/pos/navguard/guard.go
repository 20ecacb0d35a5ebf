// Package navguard stops the user from leaving a sale with a dirty order
// without an explicit decision, and coordinates that decision.
package navguard

import (
	"strings"
	"sync"
)

var DefaultSaleRoutes = []string{"/sale/direct", "/sale/table", "/restaurant"}

// UnloadMessage is returned to the unload hook. Browsers show their own
// generic prompt and ignore the text.
const UnloadMessage = "An order is in progress. Leave anyway?"

// History pushes an entry onto the browser history stack.
type History interface {
	Push(path string)
}

type PopResult int

const (
	// PopPassed means the guard was not armed; the back navigation stands.
	PopPassed PopResult = iota
	// PopAbsorbed means the back press hit the guard entry, was countered
	// and turned into a pending intent.
	PopAbsorbed
	// PopEscaped means no guard entry was on top, typically a second rapid
	// back press landing before the counter push. Not an error.
	PopEscaped
)

func (r PopResult) String() string {
	switch r {
	case PopAbsorbed:
		return "absorbed"
	case PopEscaped:
		return "escaped"
	}
	return "passed"
}

type Guard struct {
	routes  []string
	dirty   func() bool
	coord   *Coordinator
	history History

	mu       sync.Mutex
	sentinel bool
}

// NewGuard arms on dirty() for paths under routes. history may be nil when
// the environment has no back button.
func NewGuard(routes []string, dirty func() bool, coord *Coordinator, history History) *Guard {
	if len(routes) == 0 {
		routes = DefaultSaleRoutes
	}
	return &Guard{routes: normalizeRoutes(routes), dirty: dirty, coord: coord, history: history}
}

func (g *Guard) IsSaleRoute(path string) bool {
	p := cleanPath(path)
	for _, r := range g.routes {
		if p == r || strings.HasPrefix(p, r+"/") {
			return true
		}
	}
	return false
}

// Armed reports whether leaving current needs confirmation. It depends only
// on the order state and the location, so emptying the order disarms it.
func (g *Guard) Armed(current string) bool {
	return g.IsSaleRoute(current) && g.dirty()
}

// BeforeNavigate is the in-app router hook. It reports whether the route
// change to target may proceed; when it may not, an intent is opened.
func (g *Guard) BeforeNavigate(current, target string) bool {
	if !g.Armed(current) || g.IsSaleRoute(target) {
		return true
	}
	g.coord.Open(target, TriggerRouter)
	return false
}

// Sync keeps the guard history entry in place. Call it after every location
// change and every order mutation.
func (g *Guard) Sync(current string) {
	armed := g.Armed(current)

	g.mu.Lock()
	if !armed {
		g.sentinel = false
		g.mu.Unlock()
		return
	}
	if g.sentinel || g.history == nil {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	g.history.Push(current)

	g.mu.Lock()
	g.sentinel = true
	g.mu.Unlock()
}

// OnPopState handles a browser back press that already moved the history
// back to the entry below the guard entry. backTarget is where the user was
// heading.
//
// The back press cannot be cancelled, only compensated: the guard entry is
// consumed, a fresh one is pushed and the navigation becomes an intent. The
// window between consume and push is open; a second pop landing in it
// escapes. That is accepted.
func (g *Guard) OnPopState(current, backTarget string) PopResult {
	if !g.Armed(current) {
		g.mu.Lock()
		g.sentinel = false
		g.mu.Unlock()
		return PopPassed
	}

	g.mu.Lock()
	if !g.sentinel || g.history == nil {
		g.mu.Unlock()
		return PopEscaped
	}
	g.sentinel = false
	g.mu.Unlock()

	g.coord.Open(backTarget, TriggerBack)
	g.history.Push(current)

	g.mu.Lock()
	g.sentinel = true
	g.mu.Unlock()
	return PopAbsorbed
}

// BeforeUnload is the tab close / reload hook. No custom dialog is possible;
// a non-empty message asks the browser for its generic prompt.
func (g *Guard) BeforeUnload(current string) (string, bool) {
	if !g.Armed(current) {
		return "", false
	}
	return UnloadMessage, true
}

// RequestNavigation runs a programmatic exit, e.g. sign-out, through the
// same check as the router.
func (g *Guard) RequestNavigation(current, target string, trigger Trigger) bool {
	if !g.Armed(current) {
		return true
	}
	g.coord.Open(target, trigger)
	return false
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func normalizeRoutes(routes []string) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		if r = cleanPath(r); r != "/" {
			out = append(out, r)
		}
	}
	return out
}
