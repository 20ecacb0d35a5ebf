package terminal

import (
	"context"

	"restaurant-pos/internal/pos/navguard"
)

// CheckNavigation is the router hook for a move from the current location to
// target. A blocked move opens the confirmation dialog.
func (t *Terminal) CheckNavigation(target string) bool {
	current := t.loc.Current()
	if t.guard.BeforeNavigate(current, target) {
		_ = t.loc.Navigate(context.Background(), target)
		t.syncGuard()
		return true
	}
	t.countBlocked(navguard.TriggerRouter)
	return false
}

// ReportLocation records where the client says it is and arms the guard
// for that route, so a dirty sale route gets its history entry before any
// back press.
func (t *Terminal) ReportLocation(path string) {
	if path == "" {
		return
	}
	t.loc.Set(path)
	t.syncGuard()
}

// OnBack handles a browser back press towards backTarget.
func (t *Terminal) OnBack(backTarget string) navguard.PopResult {
	res := t.guard.OnPopState(t.loc.Current(), backTarget)
	switch res {
	case navguard.PopAbsorbed:
		t.countBlocked(navguard.TriggerBack)
	case navguard.PopPassed, navguard.PopEscaped:
		_ = t.loc.Navigate(context.Background(), backTarget)
		t.syncGuard()
	}
	return res
}

func (t *Terminal) BeforeUnload() (string, bool) { return t.guard.BeforeUnload(t.loc.Current()) }

// RequestExit runs a programmatic exit such as sign-out through the guard.
func (t *Terminal) RequestExit(target string, trigger navguard.Trigger) bool {
	if t.guard.RequestNavigation(t.loc.Current(), target, trigger) {
		return true
	}
	t.countBlocked(trigger)
	return false
}

// ShowNavConfirm opens the confirmation dialog for target by hand.
func (t *Terminal) ShowNavConfirm(target string) {
	t.coord.Open(target, navguard.TriggerManual)
	t.countBlocked(navguard.TriggerManual)
}

// CloseNavConfirm keeps the user on the sale with the order intact.
func (t *Terminal) CloseNavConfirm() { t.coord.Close() }

// ConfirmNavigation discards the sale and performs the paused navigation.
func (t *Terminal) ConfirmNavigation(ctx context.Context) (string, error) {
	target, err := t.coord.Confirm(ctx)
	if target != "" {
		t.syncGuard()
	}
	return target, err
}

func (t *Terminal) NavigationIntent() navguard.Intent { return t.coord.Intent() }

func (t *Terminal) countBlocked(trigger navguard.Trigger) {
	if t.metrics != nil {
		t.metrics.NavigationBlocked.WithLabelValues(string(trigger)).Inc()
	}
}
