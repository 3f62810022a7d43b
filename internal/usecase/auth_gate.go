// File: internal/usecase/auth_gate.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/metrics"
)

// AuthCategory tells the UI where a failure is shown.
type AuthCategory string

const (
	// CategoryUserInput failures are shown inline on the auth form.
	CategoryUserInput AuthCategory = "user-input"
	// CategoryConfiguration failures are shown as a banner with remediation text.
	CategoryConfiguration AuthCategory = "configuration"
)

// AuthFailure is the user-presentable result of a failed sign-in.
type AuthFailure struct {
	Category    AuthCategory
	Code        adapter.AuthErrorCode
	Message     string
	Remediation string
	Err         error
}

func (f *AuthFailure) Error() string { return f.Message }
func (f *AuthFailure) Unwrap() error { return f.Err }

// AuthState is a read-only view of the gate.
type AuthState struct {
	User         *model.User
	Initializing bool
	Diagnostic   error
}

type AuthGateOptions struct {
	// InitTimeout bounds the wait for the provider's first auth-state report.
	InitTimeout time.Duration
	// AuthorizedHost is named in the unauthorized-domain remediation.
	AuthorizedHost string
}

// AuthGate mirrors the identity provider's auth state and translates its errors.
type AuthGate struct {
	idp  adapter.IdentityProvider
	log  *zerolog.Logger
	opts AuthGateOptions

	mu           sync.Mutex
	user         *model.User
	initializing bool
	diag         error
	started      bool
	closed       bool
	unsub        func()
	timer        *time.Timer

	ready     chan struct{}
	readyOnce sync.Once

	subMu   sync.Mutex
	subs    map[int]func(AuthState)
	nextSub int
}

func NewAuthGate(idp adapter.IdentityProvider, logger *zerolog.Logger, opts AuthGateOptions) *AuthGate {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 8 * time.Second
	}
	if opts.AuthorizedHost == "" {
		opts.AuthorizedHost = "localhost"
	}
	return &AuthGate{
		idp:          idp,
		log:          logger,
		opts:         opts,
		initializing: true,
		ready:        make(chan struct{}),
		subs:         make(map[int]func(AuthState)),
	}
}

// Start subscribes to the provider once and arms the init timer. Later calls are no-ops.
func (g *AuthGate) Start() {
	g.mu.Lock()
	if g.started || g.closed {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.timer = time.AfterFunc(g.opts.InitTimeout, g.onInitTimeout)
	g.mu.Unlock()

	// Providers may report synchronously from Subscribe, so no lock is held here.
	unsub := g.idp.Subscribe(g.onAuthChange)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		unsub()
		return
	}
	g.unsub = unsub
	g.mu.Unlock()
}

// Close drops the subscription and the timer.
func (g *AuthGate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsub := g.unsub
	g.unsub = nil
	if g.timer != nil {
		g.timer.Stop()
	}
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (g *AuthGate) onAuthChange(pu *adapter.ProviderUser) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.user = projectUser(pu)
	g.initializing = false
	g.diag = nil
	if g.timer != nil {
		g.timer.Stop()
	}
	st := g.stateLocked()
	g.mu.Unlock()

	g.log.Debug().Bool("signed_in", st.User != nil).Msg("auth state changed")
	g.markReady()
	g.notify(st)
}

func (g *AuthGate) onInitTimeout() {
	g.mu.Lock()
	if g.closed || !g.initializing {
		g.mu.Unlock()
		return
	}
	g.initializing = false
	g.diag = domain.ErrIdentityUnresponsive
	st := g.stateLocked()
	g.mu.Unlock()

	g.log.Warn().Dur("timeout", g.opts.InitTimeout).Msg("identity provider unresponsive")
	g.markReady()
	g.notify(st)
}

func projectUser(pu *adapter.ProviderUser) *model.User {
	if pu == nil {
		return nil
	}
	u := model.NewUser(pu.UID, pu.Email, pu.DisplayName, pu.PhotoURL)
	return &u
}

func (g *AuthGate) markReady() { g.readyOnce.Do(func() { close(g.ready) }) }

// Ready is closed once initialization has finished, by report or by timeout.
func (g *AuthGate) Ready() <-chan struct{} { return g.ready }

func (g *AuthGate) State() AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *AuthGate) stateLocked() AuthState {
	var u *model.User
	if g.user != nil {
		cp := *g.user
		u = &cp
	}
	return AuthState{User: u, Initializing: g.initializing, Diagnostic: g.diag}
}

func (g *AuthGate) User() *model.User  { return g.State().User }
func (g *AuthGate) Initializing() bool { return g.State().Initializing }
func (g *AuthGate) Diagnostic() error  { return g.State().Diagnostic }
func (g *AuthGate) SignedIn() bool     { return g.State().User != nil }

// Subscribe registers fn for state changes.
func (g *AuthGate) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.subMu.Lock()
			delete(g.subs, id)
			g.subMu.Unlock()
		})
	}
}

func (g *AuthGate) notify(st AuthState) {
	g.subMu.Lock()
	fns := make([]func(AuthState), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// SignIn signs in with email and password. Failures are *AuthFailure.
func (g *AuthGate) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	pu, err := g.idp.SignInWithPassword(ctx, email, password)
	return g.finish(ctx, "password", pu, err, false)
}

// SignUp creates an account and signs it in. Failures are *AuthFailure.
func (g *AuthGate) SignUp(ctx context.Context, email, password string) (*model.User, error) {
	pu, err := g.idp.SignUpWithPassword(ctx, email, password)
	return g.finish(ctx, "signup", pu, err, false)
}

// SignInWithProvider runs the interactive provider flow. A flow the user abandoned
// returns neither a user nor an error.
func (g *AuthGate) SignInWithProvider(ctx context.Context) (*model.User, error) {
	pu, err := g.idp.SignInWithPopup(ctx)
	return g.finish(ctx, "popup", pu, err, true)
}

func (g *AuthGate) finish(ctx context.Context, method string, pu *adapter.ProviderUser, err error, popup bool) (*model.User, error) {
	if err != nil {
		code := adapter.AuthCode(err)
		metrics.IncAuthAttempt(method, string(code))
		if popup && code == adapter.AuthPopupClosed {
			return nil, nil
		}
		logging.With(ctx, g.log).Warn().Err(err).Str("method", method).Str("code", string(code)).Msg("sign-in failed")
		return nil, g.translate(code, err, popup)
	}
	metrics.IncAuthAttempt(method, "ok")
	if pu == nil {
		return nil, g.translate(adapter.AuthOther, domain.ErrNotAuthenticated, popup)
	}
	g.onAuthChange(pu)
	logging.With(logging.WithUserID(ctx, pu.UID), g.log).Info().Str("method", method).Msg("signed in")
	return g.User(), nil
}

func (g *AuthGate) translate(code adapter.AuthErrorCode, err error, popup bool) *AuthFailure {
	f := &AuthFailure{Category: CategoryUserInput, Code: code, Err: err}
	switch code {
	case adapter.AuthInvalidCredential:
		f.Message = "Invalid email or password."
	case adapter.AuthEmailInUse:
		f.Message = "Email already registered."
	case adapter.AuthWeakPassword:
		f.Message = "Password too weak."
	case adapter.AuthUnauthorizedDomain:
		f.Category = CategoryConfiguration
		f.Message = "Domain Not Authorized"
		if popup {
			f.Message = "Unauthorized Domain"
		}
		f.Remediation = "Go to Firebase Console > Auth > Settings > Authorized Domains and add " + g.opts.AuthorizedHost + "."
	default:
		f.Message = "Authentication failed."
		if popup {
			f.Message = "Google sign-in failed."
		}
	}
	return f
}

// SignOut asks the provider to sign out. The local user is cleared either way.
func (g *AuthGate) SignOut(ctx context.Context) {
	if err := g.idp.SignOut(ctx); err != nil {
		metrics.IncAuthAttempt("signout", string(adapter.AuthCode(err)))
		logging.With(ctx, g.log).Error().Err(err).Msg("sign out failed")
	} else {
		metrics.IncAuthAttempt("signout", "ok")
	}

	g.mu.Lock()
	g.user = nil
	st := g.stateLocked()
	g.mu.Unlock()
	g.notify(st)
}
