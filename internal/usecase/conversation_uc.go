// File: internal/usecase/conversation_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/model"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/logging"
	"nyx-chat/internal/infra/metrics"
)

// Replies shown in place of a model answer.
const (
	EmptyReplyText      = "I'm sorry, I couldn't generate a response."
	ConnectionErrorText = "Error: Unable to connect to Nyx server. Please check your internet connection."
)

type ConversationState int

const (
	StateIdle ConversationState = iota
	StateAwaitingResponse
)

func (s ConversationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting-response"
	default:
		return "unknown"
	}
}

type ConversationOptions struct {
	// RequestTimeout bounds one generate call; <= 0 means no bound.
	RequestTimeout time.Duration
	// HistoryLimit keeps only the most recent N prior messages; 0 sends all.
	HistoryLimit int
	Now          func() time.Time
}

// ConversationController sequences one send at a time: the user message is appended
// locally, the generator is called outside any lock, and the reply is appended to the
// session captured at submit time.
type ConversationController struct {
	store *SessionStore
	ai    adapter.TextGenerator
	log   *zerolog.Logger
	opts  ConversationOptions

	mu      sync.Mutex
	state   ConversationState
	input   string
	settled chan struct{} // closed when the pending exchange returns to idle
}

func NewConversationController(store *SessionStore, ai adapter.TextGenerator, logger *zerolog.Logger, opts ConversationOptions) *ConversationController {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ConversationController{store: store, ai: ai, log: logger, opts: opts}
}

func (c *ConversationController) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

func (c *ConversationController) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

func (c *ConversationController) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ConversationController) toIdleLocked() {
	c.state = StateIdle
	if c.settled != nil {
		close(c.settled)
		c.settled = nil
	}
}

// WaitIdle blocks until no reply is pending. It reports false if ctx ends first.
func (c *ConversationController) WaitIdle(ctx context.Context) bool {
	c.mu.Lock()
	ch := c.settled
	c.mu.Unlock()
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Exchange is a submitted message waiting for its reply.
type Exchange struct {
	c         *ConversationController
	sessionID string
	prompt    model.Message
	history   []adapter.Turn

	once  sync.Once
	reply model.Message
}

func (e *Exchange) SessionID() string     { return e.sessionID }
func (e *Exchange) Prompt() model.Message { return e.prompt }

// Submit appends the buffered input as a user message and moves to awaiting-response.
// It reports false, changing nothing, while a reply is pending or when the input is blank.
func (c *ConversationController) Submit(ctx context.Context) (*Exchange, bool) {
	c.mu.Lock()
	if c.state != StateIdle || strings.TrimSpace(c.input) == "" {
		c.mu.Unlock()
		return nil, false
	}
	raw := c.input
	c.input = ""
	c.state = StateAwaitingResponse
	c.settled = make(chan struct{})
	c.mu.Unlock()

	msg := model.NewMessage(model.RoleUser, strings.TrimSpace(raw), c.opts.Now())
	ex, err := c.record(ctx, msg)
	if err != nil {
		logging.With(ctx, c.log).Error().Err(err).Msg("record user message")
		c.mu.Lock()
		c.toIdleLocked()
		c.input = raw
		c.mu.Unlock()
		return nil, false
	}
	return ex, true
}

// record appends msg to the active session, or opens a session when none is active.
func (c *ConversationController) record(ctx context.Context, msg model.Message) (*Exchange, error) {
	if active, ok := c.store.ActiveSession(); ok {
		prior := active.RecentMessages(c.opts.HistoryLimit)
		if _, err := c.store.AppendMessage(ctx, active.ID, msg); err == nil {
			return c.newExchange(active.ID, msg, prior), nil
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}
	cs, err := c.store.CreateSession(ctx, msg)
	if err != nil {
		return nil, err
	}
	return c.newExchange(cs.ID, msg, nil), nil
}

func (c *ConversationController) newExchange(sessionID string, prompt model.Message, prior []model.Message) *Exchange {
	history := make([]adapter.Turn, 0, len(prior))
	for _, m := range prior {
		history = append(history, adapter.Turn{Role: string(m.Role), Text: m.Content})
	}
	return &Exchange{c: c, sessionID: sessionID, prompt: prompt, history: history}
}

// Await calls the generator and appends its reply, or a fixed fallback text, to the
// captured session. The controller is idle again when Await returns. Repeated calls
// return the first result.
func (e *Exchange) Await(ctx context.Context) model.Message {
	e.once.Do(func() { e.reply = e.c.settle(ctx, e) })
	return e.reply
}

func (c *ConversationController) settle(ctx context.Context, e *Exchange) model.Message {
	defer func() {
		c.mu.Lock()
		c.toIdleLocked()
		c.mu.Unlock()
	}()
	ctx = logging.WithSessID(ctx, e.sessionID)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "Conversation.Await")()

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.opts.RequestTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
	}
	text, err := c.ai.Generate(callCtx, e.prompt.Content, e.history)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()

	var content, outcome string
	switch {
	case err != nil:
		content, outcome = ConnectionErrorText, "error"
		if timedOut {
			outcome = "timeout"
		}
		log.Warn().Err(err).Str("outcome", outcome).Msg("generate failed")
	case text == "":
		content, outcome = EmptyReplyText, "empty"
	default:
		content, outcome = text, "ok"
	}
	metrics.IncChatSend(outcome)

	reply := model.NewMessage(model.RoleModel, content, c.opts.Now())
	// The exchange must land even if the caller's context is already done.
	if _, err := c.store.AppendMessage(context.WithoutCancel(ctx), e.sessionID, reply); err != nil {
		log.Warn().Err(err).Msg("reply dropped")
	}
	return reply
}

// Send runs a whole exchange for non-interactive callers.
func (c *ConversationController) Send(ctx context.Context, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, domain.ErrInvalidArgument
	}
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return model.Message{}, domain.ErrConversationBusy
	}
	c.input = text
	c.mu.Unlock()

	ex, ok := c.Submit(ctx)
	if !ok {
		return model.Message{}, domain.ErrConversationBusy
	}
	return ex.Await(ctx), nil
}
