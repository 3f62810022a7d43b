// File: internal/infra/adapters/identity/firebase.go
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nyx-chat/internal/domain"
	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/logging"
)

var _ adapter.IdentityProvider = (*FirebaseProvider)(nil)

const (
	identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	secureTokenURL     = "https://securetoken.googleapis.com/v1"
)

// PopupFlow runs an interactive browser sign-in and returns a Google ID token.
type PopupFlow interface {
	Run(ctx context.Context) (idToken string, err error)
}

type FirebaseOptions struct {
	APIKey string
	// BaseURL points both REST services at an emulator, e.g. http://127.0.0.1:9099.
	BaseURL string
	// Slot keeps the refresh token under AuthKey between runs.
	Slot    repository.SlotStore
	AuthKey string
	Popup   PopupFlow
	Client  *http.Client
}

// FirebaseProvider talks to Firebase Authentication over its REST API.
type FirebaseProvider struct {
	opts        FirebaseOptions
	identityURL string
	tokenURL    string
	http        *http.Client
	log         *zerolog.Logger
	subs        *listeners

	// bg scopes the background restore; Close cancels it and waits.
	bg          context.Context
	stop        context.CancelFunc
	wg          sync.WaitGroup
	restoreOnce sync.Once
	mu          sync.Mutex
	restored    bool
	current     *adapter.ProviderUser
}

func NewFirebaseProvider(opts FirebaseOptions, logger *zerolog.Logger) (*FirebaseProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("firebase: empty api key")
	}
	if opts.Slot == nil || opts.AuthKey == "" {
		return nil, errors.New("firebase: slot store and auth key are required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	bg, stop := context.WithCancel(context.Background())
	p := &FirebaseProvider{
		bg:          bg,
		stop:        stop,
		opts:        opts,
		identityURL: identityToolkitURL,
		tokenURL:    secureTokenURL,
		http:        opts.Client,
		log:         logger,
		subs:        newListeners(),
	}
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" {
		p.identityURL = base + "/identitytoolkit.googleapis.com/v1"
		p.tokenURL = base + "/securetoken.googleapis.com/v1"
	}
	return p, nil
}

// Subscribe reports the current state right away once the stored session has been
// restored; the first subscriber starts that restore in the background.
func (p *FirebaseProvider) Subscribe(fn func(*adapter.ProviderUser)) func() {
	remove := p.subs.add(fn)

	p.mu.Lock()
	restored, cur := p.restored, p.current
	p.mu.Unlock()

	if restored {
		fn(cur)
	} else {
		p.restoreOnce.Do(func() {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.restore()
			}()
		})
	}
	return remove
}

// Close stops a restore still in flight and waits for it, so the slot store can be
// closed afterwards.
func (p *FirebaseProvider) Close() error {
	p.stop()
	p.wg.Wait()
	return nil
}

func (p *FirebaseProvider) restore() {
	ctx, cancel := context.WithTimeout(p.bg, 30*time.Second)
	defer cancel()

	raw, err := p.opts.Slot.Load(ctx, p.opts.AuthKey)
	if err != nil || len(raw) == 0 {
		if !errors.Is(err, repository.ErrSlotEmpty) && err != nil {
			p.log.Warn().Err(err).Msg("firebase: load stored session")
		}
		p.setUser(nil)
		return
	}

	tok, err := p.refresh(ctx, string(raw))
	if err != nil {
		p.log.Warn().Err(err).Msg("firebase: restore session")
		if adapter.AuthCode(err) == adapter.AuthInvalidCredential {
			_ = p.opts.Slot.Delete(ctx, p.opts.AuthKey)
		}
		p.setUser(nil)
		return
	}
	claims, err := ParseIDToken(tok.IDToken)
	if err != nil {
		p.log.Warn().Err(err).Msg("firebase: restored token unreadable")
		p.setUser(nil)
		return
	}
	if tok.RefreshToken != "" && tok.RefreshToken != string(raw) {
		p.persist(ctx, tok.RefreshToken)
	}
	p.setUser(claims.user())
}

func (p *FirebaseProvider) setUser(u *adapter.ProviderUser) {
	p.mu.Lock()
	p.current = u
	p.restored = true
	p.mu.Unlock()
	p.subs.emit(u)
}

func (p *FirebaseProvider) persist(ctx context.Context, refreshToken string) {
	if err := p.opts.Slot.Store(ctx, p.opts.AuthKey, []byte(refreshToken)); err != nil {
		p.log.Error().Err(err).Msg("firebase: persist session")
	}
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	return p.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

func (p *FirebaseProvider) SignUpWithPassword(ctx context.Context, email, password string) (*adapter.ProviderUser, error) {
	return p.passwordCall(ctx, "accounts:signUp", email, password)
}

func (p *FirebaseProvider) passwordCall(ctx context.Context, method, email, password string) (*adapter.ProviderUser, error) {
	var resp signInResponse
	err := p.postJSON(ctx, p.identityURL+"/"+method, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.complete(ctx, resp), nil
}

// SignInWithPopup exchanges the Google ID token from the browser flow for a Firebase session.
func (p *FirebaseProvider) SignInWithPopup(ctx context.Context) (*adapter.ProviderUser, error) {
	if p.opts.Popup == nil {
		return nil, adapter.NewAuthError(adapter.AuthOther, fmt.Errorf("google sign-in: %w", domain.ErrProviderUnavailable))
	}
	googleToken, err := p.opts.Popup.Run(ctx)
	if err != nil {
		return nil, err
	}

	var resp signInResponse
	err = p.postJSON(ctx, p.identityURL+"/accounts:signInWithIdp", map[string]any{
		"postBody":            url.Values{"id_token": {googleToken}, "providerId": {"google.com"}}.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.complete(ctx, resp), nil
}

func (p *FirebaseProvider) complete(ctx context.Context, resp signInResponse) *adapter.ProviderUser {
	u := &adapter.ProviderUser{UID: resp.LocalID, Email: resp.Email, DisplayName: resp.DisplayName, PhotoURL: resp.PhotoURL}
	if claims, err := ParseIDToken(resp.IDToken); err == nil {
		c := claims.user()
		if u.UID == "" {
			u.UID = c.UID
		}
		if u.Email == "" {
			u.Email = c.Email
		}
		if u.DisplayName == "" {
			u.DisplayName = c.DisplayName
		}
		if u.PhotoURL == "" {
			u.PhotoURL = c.PhotoURL
		}
	}
	if resp.RefreshToken != "" {
		p.persist(ctx, resp.RefreshToken)
	}
	p.setUser(u)
	return u
}

func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	err := p.opts.Slot.Delete(ctx, p.opts.AuthKey)
	p.setUser(nil)
	if err != nil {
		return fmt.Errorf("firebase: forget session: %w", err)
	}
	return nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

func (p *FirebaseProvider) refresh(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL+"/token?key="+url.QueryEscape(p.opts.APIKey), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out refreshResponse
	if err := p.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *FirebaseProvider) postJSON(ctx context.Context, endpoint string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(p.opts.APIKey), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *FirebaseProvider) do(req *http.Request, out any) error {
	resp, err := p.http.Do(req)
	if err != nil {
		return adapter.NewAuthError(adapter.AuthOther, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		msg := e.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return adapter.NewAuthError(classifyFirebaseError(msg), fmt.Errorf("firebase http %d: %s", resp.StatusCode, msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return adapter.NewAuthError(adapter.AuthOther, fmt.Errorf("decode firebase response: %w", err))
	}
	return nil
}

// classifyFirebaseError maps REST error messages ("WEAK_PASSWORD : Password should be
// at least 6 characters") to auth codes.
func classifyFirebaseError(msg string) adapter.AuthErrorCode {
	code := msg
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_IDP_RESPONSE",
		"INVALID_REFRESH_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND", "USER_DISABLED":
		return adapter.AuthInvalidCredential
	case "EMAIL_EXISTS":
		return adapter.AuthEmailInUse
	case "WEAK_PASSWORD":
		return adapter.AuthWeakPassword
	case "UNAUTHORIZED_DOMAIN":
		return adapter.AuthUnauthorizedDomain
	default:
		return adapter.AuthOther
	}
}
