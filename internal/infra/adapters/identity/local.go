// File: internal/infra/adapters/identity/local.go
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/logging"
)

var _ adapter.IdentityProvider = (*LocalProvider)(nil)

const (
	minPasswordLen  = 6
	localSessionTTL = 30 * 24 * time.Hour
)

type LocalOptions struct {
	Slot repository.SlotStore
	// AuthKey holds the session token; accounts and the generated secret live next to it.
	AuthKey string
	// Secret signs session tokens. Empty means a random secret kept in the slot store.
	Secret string
}

type localAccount struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Hash  []byte `json:"hash"`
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider is an offline identity provider for development. Accounts are bcrypt
// hashed in the slot store and the signed-in session is an HS256 token.
type LocalProvider struct {
	opts LocalOptions
	log  *zerolog.Logger
	subs *listeners
	now  func() time.Time

	mu       sync.Mutex
	secret   []byte
	restored bool
	current  *adapter.ProviderUser
}

func NewLocalProvider(opts LocalOptions, logger *zerolog.Logger) (*LocalProvider, error) {
	if opts.Slot == nil || opts.AuthKey == "" {
		return nil, errors.New("local identity: slot store and auth key are required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	p := &LocalProvider{opts: opts, log: logger, subs: newListeners(), now: time.Now}
	if opts.Secret != "" {
		p.secret = []byte(opts.Secret)
	}
	return p, nil
}

func (p *LocalProvider) accountsKey() string { return p.opts.AuthKey + "_accounts" }
func (p *LocalProvider) secretKey() string   { return p.opts.AuthKey + "_secret" }

// Subscribe restores the stored session on first use and reports synchronously.
func (p *LocalProvider) Subscribe(fn func(*adapter.ProviderUser)) func() {
	remove := p.subs.add(fn)

	p.mu.Lock()
	if !p.restored {
		p.current = p.restoreLocked(context.Background())
		p.restored = true
	}
	cur := p.current
	p.mu.Unlock()

	var cp *adapter.ProviderUser
	if cur != nil {
		c := *cur
		cp = &c
	}
	fn(cp)
	return remove
}

func (p *LocalProvider) restoreLocked(ctx context.Context) *adapter.ProviderUser {
	raw, err := p.opts.Slot.Load(ctx, p.opts.AuthKey)
	if err != nil || len(raw) == 0 {
		return nil
	}
	secret, err := p.secretLocked(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("local identity: session secret unavailable")
		return nil
	}
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(string(raw), claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil || !tok.Valid {
		p.log.Info().Err(err).Msg("local identity: stored session rejected")
		return nil
	}
	return &adapter.ProviderUser{UID: claims.Subject, Email: claims.Email}
}

func (p *LocalProvider) secretLocked(ctx context.Context) ([]byte, error) {
	if p.secret != nil {
		return p.secret, nil
	}
	raw, err := p.opts.Slot.Load(ctx, p.secretKey())
	if err == nil && len(raw) > 0 {
		p.secret = raw
		return raw, nil
	}
	if err != nil && !errors.Is(err, repository.ErrSlotEmpty) {
		return nil, err
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	secret := []byte(base64.RawStdEncoding.EncodeToString(b))
	if err := p.opts.Slot.Store(ctx, p.secretKey(), secret); err != nil {
		return nil, err
	}
	p.secret = secret
	return secret, nil
}

func (p *LocalProvider) loadAccounts(ctx context.Context) (map[string]localAccount, error) {
	accounts := map[string]localAccount{}
	raw, err := p.opts.Slot.Load(ctx, p.accountsKey())
	if errors.Is(err, repository.ErrSlotEmpty) {
		return accounts, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode local accounts: %w", err)
	}
	return accounts, nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	return p.notifyAfter(p.signIn(ctx, email, password))
}

func (p *LocalProvider) SignUpWithPassword(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	return p.notifyAfter(p.signUp(ctx, email, password))
}

func (p *LocalProvider) notifyAfter(u *adapter.ProviderUser, err error) (*adapter.ProviderUser, error) {
	if err != nil {
		return nil, err
	}
	p.subs.emit(u)
	cp := *u
	return &cp, nil
}

func (p *LocalProvider) signIn(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	accounts, err := p.loadAccounts(ctx)
	if err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	acc, ok := accounts[normalizeEmail(email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.Hash, []byte(password)) != nil {
		return nil, adapter.NewAuthError(adapter.AuthInvalidCredential, errors.New("unknown email or wrong password"))
	}
	return p.startSessionLocked(ctx, acc)
}

func (p *LocalProvider) signUp(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, fmt.Errorf("invalid email: %w", err))
	}
	if len(password) < minPasswordLen {
		return nil, adapter.NewAuthError(adapter.AuthWeakPassword, fmt.Errorf("password should be at least %d characters", minPasswordLen))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	accounts, err := p.loadAccounts(ctx)
	if err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	if _, exists := accounts[email]; exists {
		return nil, adapter.NewAuthError(adapter.AuthEmailInUse, errors.New(email))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	acc := localAccount{UID: uuid.NewString(), Email: email, Hash: hash}
	accounts[email] = acc
	b, err := json.Marshal(accounts)
	if err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	if err := p.opts.Slot.Store(ctx, p.accountsKey(), b); err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	return p.startSessionLocked(ctx, acc)
}

func (p *LocalProvider) startSessionLocked(ctx context.Context, acc localAccount) (*adapter.ProviderUser, error) {
	secret, err := p.secretLocked(ctx)
	if err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	now := p.now()
	claims := sessionClaims{
		Email: acc.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(localSessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, err)
	}
	if err := p.opts.Slot.Store(ctx, p.opts.AuthKey, []byte(signed)); err != nil {
		p.log.Error().Err(err).Msg("local identity: persist session")
	}

	u := &adapter.ProviderUser{UID: acc.UID, Email: acc.Email}
	p.current = u
	p.restored = true
	return u, nil
}

func (p *LocalProvider) SignInWithPopup(ctx context.Context) (*adapter.ProviderUser, error) {
	return nil, adapter.NewAuthError(adapter.AuthOther, fmt.Errorf("google sign-in: %w", domain.ErrProviderUnavailable))
}

func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.restored = true
	err := p.opts.Slot.Delete(ctx, p.opts.AuthKey)
	p.mu.Unlock()

	p.subs.emit(nil)
	return err
}
