// File: internal/infra/adapters/identity/google_popup.go
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"nyx-chat/internal/domain/ports/adapter"
	"nyx-chat/internal/infra/logging"
)

var _ PopupFlow = (*GooglePopup)(nil)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	callbackPath   = "/oauth-callback"
)

type GooglePopupOptions struct {
	ClientID     string
	ClientSecret string
	// CallbackPort is the loopback port Google redirects to; 0 picks a free one.
	CallbackPort int
	AuthURL      string
	TokenURL     string
	// Open shows the consent page to the user. Defaults to the system browser.
	Open   func(authURL string) error
	Client *http.Client
}

// GooglePopup is the terminal stand-in for a sign-in popup: the system browser opens
// Google's consent page and a loopback server receives the redirect (PKCE, S256).
type GooglePopup struct {
	opts GooglePopupOptions
	log  *zerolog.Logger
}

func NewGooglePopup(opts GooglePopupOptions, logger *zerolog.Logger) *GooglePopup {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.AuthURL == "" {
		opts.AuthURL = googleAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = googleTokenURL
	}
	if opts.Open == nil {
		opts.Open = openBrowser
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GooglePopup{opts: opts, log: logger}
}

type callbackResult struct {
	code string
	err  error
}

// Run returns a Google ID token. A denied consent or a cancelled ctx is reported as
// popup-closed-by-user.
func (g *GooglePopup) Run(ctx context.Context) (string, error) {
	if g.opts.ClientID == "" {
		return "", adapter.NewAuthError(adapter.AuthOther, errors.New("google sign-in: client id not configured"))
	}
	verifier, challenge, err := pkcePair()
	if err != nil {
		return "", adapter.NewAuthError(adapter.AuthOther, err)
	}
	state, err := randomToken(16)
	if err != nil {
		return "", adapter.NewAuthError(adapter.AuthOther, err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", g.opts.CallbackPort))
	if err != nil {
		return "", adapter.NewAuthError(adapter.AuthOther, fmt.Errorf("callback listener: %w", err))
	}
	redirectURI := fmt.Sprintf("http://localhost:%d%s", ln.Addr().(*net.TCPAddr).Port, callbackPath)

	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackRouter(state, results), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := g.authURL(redirectURI, state, challenge)
	g.log.Info().Str("url", authURL).Msg("opening google sign-in")
	adapter.ReportConsentURL(ctx, authURL)
	if err := g.opts.Open(authURL); err != nil {
		g.log.Warn().Err(err).Msg("could not open browser")
	}

	var code string
	select {
	case r := <-results:
		if r.err != nil {
			return "", r.err
		}
		code = r.code
	case <-ctx.Done():
		return "", adapter.NewAuthError(adapter.AuthPopupClosed, ctx.Err())
	}
	return g.exchange(ctx, code, verifier, redirectURI)
}

func callbackRouter(state string, results chan<- callbackResult) http.Handler {
	send := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}
	r := chi.NewRouter()
	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			return
		}
		switch e := q.Get("error"); {
		case e == "access_denied":
			_, _ = io.WriteString(w, "Sign-in cancelled. You can close this window.")
			send(callbackResult{err: adapter.NewAuthError(adapter.AuthPopupClosed, errors.New(e))})
			return
		case e != "":
			http.Error(w, "Sign-in failed: "+e, http.StatusBadRequest)
			send(callbackResult{err: adapter.NewAuthError(adapter.AuthOther, errors.New(e))})
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code received", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, "Signed in to Nyx Ai. You can close this window and return to the terminal.")
		send(callbackResult{code: code})
	})
	return r
}

func (g *GooglePopup) authURL(redirectURI, state, challenge string) string {
	q := url.Values{}
	q.Set("client_id", g.opts.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", "openid email profile")
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	q.Set("prompt", "select_account")
	return g.opts.AuthURL + "?" + q.Encode()
}

func (g *GooglePopup) exchange(ctx context.Context, code, verifier, redirectURI string) (string, error) {
	form := url.Values{}
	form.Set("client_id", g.opts.ClientID)
	if g.opts.ClientSecret != "" {
		form.Set("client_secret", g.opts.ClientSecret)
	}
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", adapter.NewAuthError(adapter.AuthOther, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.opts.Client.Do(req)
	if err != nil {
		return "", adapter.NewAuthError(adapter.AuthOther, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", adapter.NewAuthError(adapter.AuthOther, fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, body))
	}

	var tok struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", adapter.NewAuthError(adapter.AuthOther, err)
	}
	if tok.IDToken == "" {
		return "", adapter.NewAuthError(adapter.AuthOther, errors.New("token response without id_token"))
	}
	return tok.IDToken, nil
}

func pkcePair() (verifier, challenge string, err error) {
	verifier, err = randomToken(32)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func openBrowser(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	default:
		return exec.Command("xdg-open", u).Start()
	}
}
