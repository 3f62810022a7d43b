// File: internal/usecase/view_router.go
package usecase

import "sync"

type View int

const (
	ViewSplash View = iota
	ViewAuth
	ViewChat
	ViewAbout
)

func (v View) String() string {
	switch v {
	case ViewSplash:
		return "splash"
	case ViewAuth:
		return "auth"
	case ViewChat:
		return "chat"
	case ViewAbout:
		return "about"
	default:
		return "unknown"
	}
}

// ViewRouter decides which screen is shown. It starts on the splash screen and has
// no terminal state.
type ViewRouter struct {
	mu      sync.Mutex
	current View
}

func NewViewRouter() *ViewRouter { return &ViewRouter{current: ViewSplash} }

func (r *ViewRouter) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *ViewRouter) set(v View) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = v
	return v
}

// SplashElapsed leaves the splash screen. It does nothing on any other screen.
func (r *ViewRouter) SplashElapsed(hasUser bool) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != ViewSplash {
		return r.current
	}
	if hasUser {
		r.current = ViewChat
	} else {
		r.current = ViewAuth
	}
	return r.current
}

func (r *ViewRouter) Authenticated() View { return r.set(ViewChat) }

// ShowAbout is only reachable from the chat screen.
func (r *ViewRouter) ShowAbout() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == ViewChat {
		r.current = ViewAbout
	}
	return r.current
}

func (r *ViewRouter) Back() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == ViewAbout {
		r.current = ViewChat
	}
	return r.current
}

// ShowChat routes to chat, or to auth when nobody is signed in.
func (r *ViewRouter) ShowChat(hasUser bool) View {
	if !hasUser {
		return r.set(ViewAuth)
	}
	return r.set(ViewChat)
}

func (r *ViewRouter) SignedOut() View { return r.set(ViewAuth) }
