package partdime

import (
	"sort"
	"sync"
)

// Screen names the navigable surfaces of the client.
type Screen string

const (
	ScreenRoleSelect           Screen = "role-select"
	ScreenSlider               Screen = "slider"
	ScreenEmployerRegistration Screen = "employer-registration"
	ScreenEmployeeRegistration Screen = "employee-registration"
	ScreenEmployerLogin        Screen = "employer-login"
	ScreenEmployeeLogin        Screen = "employee-login"
	ScreenVerifyEmployerEmail  Screen = "verify-employer-email"
	ScreenVerifyEmail          Screen = "verify-email"
	ScreenEmployerHome         Screen = "employer-home"
	ScreenHome                 Screen = "home"
	ScreenJobDetails           Screen = "job-details"
	ScreenJobPosting           Screen = "job-posting"
	ScreenGSTVerifier          Screen = "gst-verifier"
)

// ReachableScreens derives the navigable screen set from a session
// snapshot. Pure function: no state, no persistence.
//
// A registration screen only becomes reachable once its role has been
// chosen; the guard enforces this, not the screen. An authenticated session
// with no role is a tolerated legacy state that routes to the generic
// verification and utility screens.
func ReachableScreens(snap Snapshot) []Screen {
	if !snap.Authenticated {
		screens := []Screen{
			ScreenRoleSelect,
			ScreenSlider,
			ScreenEmployerLogin,
			ScreenEmployeeLogin,
		}
		switch snap.Role {
		case RoleEmployer:
			screens = append(screens, ScreenEmployerRegistration)
		case RoleEmployee:
			screens = append(screens, ScreenEmployeeRegistration)
		}
		return screens
	}

	switch snap.Role {
	case RoleEmployer:
		return []Screen{
			ScreenVerifyEmployerEmail,
			ScreenEmployerHome,
			ScreenJobPosting,
			ScreenHome,
		}
	case RoleEmployee:
		return []Screen{
			ScreenVerifyEmail,
			ScreenJobDetails,
			ScreenJobPosting,
			ScreenHome,
		}
	default:
		return []Screen{
			ScreenVerifyEmail,
			ScreenGSTVerifier,
			ScreenJobPosting,
			ScreenHome,
		}
	}
}

// Guard keeps a live reachable set derived from a session. It re-derives
// synchronously on every session mutation and never caches beyond one
// recomputation.
type Guard struct {
	mu          sync.RWMutex
	reachable   map[Screen]struct{}
	unsubscribe func()
}

// NewGuard derives the guard from the session's current snapshot and
// subscribes to its mutations.
func NewGuard(session *Session) *Guard {
	g := &Guard{}
	g.apply(session.Snapshot())
	g.unsubscribe = session.Subscribe(g.apply)
	return g
}

func (g *Guard) apply(snap Snapshot) {
	set := map[Screen]struct{}{}
	for _, screen := range ReachableScreens(snap) {
		set[screen] = struct{}{}
	}

	g.mu.Lock()
	g.reachable = set
	g.mu.Unlock()
}

// CanNavigate reports whether the screen is in the current reachable set.
func (g *Guard) CanNavigate(screen Screen) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.reachable[screen]
	return ok
}

// Reachable returns the current reachable set in stable order.
func (g *Guard) Reachable() []Screen {
	g.mu.RLock()
	defer g.mu.RUnlock()

	screens := make([]Screen, 0, len(g.reachable))
	for screen := range g.reachable {
		screens = append(screens, screen)
	}
	sort.Slice(screens, func(i, j int) bool { return screens[i] < screens[j] })
	return screens
}

// Close detaches the guard from the session.
func (g *Guard) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}
