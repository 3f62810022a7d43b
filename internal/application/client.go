// File: internal/application/client.go
package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nyx-chat/internal/config"
	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/i18n"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/usecase"
)

// closeGrace is added to the request timeout when Close waits for a pending reply.
const closeGrace = 2 * time.Second

// Deps are the collaborators a Client is assembled from.
type Deps struct {
	Config     *config.Config
	Logger     *zerolog.Logger
	Slot       repository.SlotStore
	AI         adapter.TextGenerator
	Identity   adapter.IdentityProvider
	Translator *i18n.Translator
}

// Client is the one object the UI and the CLI work against. It owns the session store,
// the conversation controller, the auth gate and the view router.
type Client struct {
	Store        *usecase.SessionStore
	Conversation *usecase.ConversationController
	Auth         *usecase.AuthGate
	Router       *usecase.ViewRouter
	Text         *i18n.Translator

	cfg  *config.Config
	ai   adapter.TextGenerator
	slot repository.SlotStore
	log  *zerolog.Logger

	mu        sync.Mutex
	started   bool
	unsubAuth func()
	closeOnce sync.Once
	closers   []func() error
}

func NewClient(d Deps) *Client {
	log := d.Logger
	if log == nil {
		log = logging.Nop()
	}
	cfg := d.Config
	store := usecase.NewSessionStore(d.Slot, cfg.Storage.SessionsKey, log)
	c := &Client{
		Store: store,
		Conversation: usecase.NewConversationController(store, d.AI, log, usecase.ConversationOptions{
			RequestTimeout: cfg.AI.RequestTimeout,
			HistoryLimit:   cfg.AI.HistoryLimit,
		}),
		Auth: usecase.NewAuthGate(d.Identity, log, usecase.AuthGateOptions{
			InitTimeout:    cfg.Identity.InitTimeout,
			AuthorizedHost: "localhost",
		}),
		Router: usecase.NewViewRouter(),
		Text:   d.Translator,
		cfg:    cfg,
		ai:     d.AI,
		slot:   d.Slot,
		log:    log,
	}
	// providers with background work against the slot stop before it closes
	if cl, ok := d.Identity.(io.Closer); ok {
		c.OnClose(cl.Close)
	}
	return c
}

// OnClose registers fn to run when the client closes, before the slot store.
func (c *Client) OnClose(fn func() error) {
	c.mu.Lock()
	c.closers = append(c.closers, fn)
	c.mu.Unlock()
}

// Start hydrates the session store and begins mirroring the identity provider.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.Store.Hydrate(ctx)

	unsub := c.Auth.Subscribe(c.onAuthState)
	c.mu.Lock()
	c.unsubAuth = unsub
	c.mu.Unlock()
	c.Auth.Start()
}

// onAuthState keeps the router consistent with the signed-in user: a sign-in observed
// on the auth screen continues to chat, losing the user anywhere past splash returns
// to auth.
func (c *Client) onAuthState(st usecase.AuthState) {
	switch cur := c.Router.Current(); {
	case st.User != nil && cur == usecase.ViewAuth:
		c.Router.Authenticated()
	case st.User == nil && !st.Initializing && (cur == usecase.ViewChat || cur == usecase.ViewAbout):
		c.Router.SignedOut()
	}
}

// Close releases the auth subscription and the adapters. Safe to call twice.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		unsub := c.unsubAuth
		closers := c.closers
		c.mu.Unlock()

		if unsub != nil {
			unsub()
		}
		c.Auth.Close()

		// a pending reply still has to be written to the slot
		wctx, cancel := context.WithTimeout(context.Background(), c.cfg.AI.RequestTimeout+closeGrace)
		if !c.Conversation.WaitIdle(wctx) {
			c.log.Warn().Msg("closing with a reply still pending")
		}
		cancel()

		for _, fn := range closers {
			err = errors.Join(err, fn())
		}
		if c.slot != nil {
			err = errors.Join(err, c.slot.Close())
		}
	})
	return err
}

// SplashElapsed leaves the splash screen based on who is signed in right now.
func (c *Client) SplashElapsed() usecase.View {
	return c.Router.SplashElapsed(c.Auth.SignedIn())
}

// Screen is the view to render: chat without a user is shown as auth.
func (c *Client) Screen() usecase.View {
	v := c.Router.Current()
	if (v == usecase.ViewChat || v == usecase.ViewAbout) && !c.Auth.SignedIn() {
		return c.Router.ShowChat(false)
	}
	return v
}

// SignOut signs out and routes to auth whatever the provider answered.
func (c *Client) SignOut(ctx context.Context) usecase.View {
	c.Auth.SignOut(ctx)
	return c.Router.SignedOut()
}

// NewChat clears the active session; the next message opens a new one.
func (c *Client) NewChat() usecase.View {
	c.Store.NewChat()
	return c.Router.ShowChat(c.Auth.SignedIn())
}

func (c *Client) SelectChat(id string) (usecase.View, error) {
	if err := c.Store.Select(id); err != nil {
		return c.Router.Current(), err
	}
	return c.Router.ShowChat(c.Auth.SignedIn()), nil
}

func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.Store.DeleteSession(ctx, id)
}

// ActiveMessages returns the messages of the active session, or nil.
func (c *Client) ActiveMessages() []model.Message {
	cs, ok := c.Store.ActiveSession()
	if !ok {
		return nil
	}
	return cs.Messages
}

// Models lists the generator's models when the provider supports it.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	ml, ok := c.ai.(adapter.ModelLister)
	if !ok {
		return nil, errors.New("the configured AI provider cannot list models")
	}
	return ml.ListModels(ctx)
}

func (c *Client) Config() *config.Config { return c.cfg }
