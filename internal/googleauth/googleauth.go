// Package googleauth produces an authorized HTTP client for the Google Sheets
// API using the installed-app OAuth flow: a one-time browser consent against a
// loopback callback server, then silent refresh from the persisted token.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// scopeSpreadsheets grants read/write access to spreadsheet contents only.
const scopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"

const tokenProvider = "google"

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	Token(ctx context.Context, provider string) (string, error)
	SetToken(ctx context.Context, provider, token string) error
}

// NewClient returns an HTTP client that attaches and refreshes Google OAuth
// credentials. When no usable token is stored it runs the interactive consent
// flow, which requires a browser and blocks until the user approves or ctx
// expires. Refreshed tokens are written back to the store.
func NewClient(ctx context.Context, credentialsPath string, store TokenStore, log *slog.Logger) (*http.Client, error) {
	cfg, err := loadClientSecret(credentialsPath)
	if err != nil {
		return nil, err
	}

	tok, err := loadToken(ctx, store)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		tok, err = authorize(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("authorizing with Google: %w", err)
		}
		if err := saveToken(ctx, store, tok); err != nil {
			return nil, err
		}
		log.Info("google authorization complete")
	}

	src := &savingTokenSource{
		ctx:   ctx,
		base:  cfg.TokenSource(ctx, tok),
		store: store,
		last:  tok,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Reset drops the persisted token so the next run re-runs the consent flow.
func Reset(ctx context.Context, store interface {
	DeleteToken(ctx context.Context, provider string) error
}) error {
	return store.DeleteToken(ctx, tokenProvider)
}

// loadClientSecret reads an installed-app client secret file as downloaded
// from the Google Cloud console.
func loadClientSecret(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var secret struct {
		Installed struct {
			ClientID     string `json:"client_id"`
			ClientSecret string `json:"client_secret"`
			AuthURI      string `json:"auth_uri"`
			TokenURI     string `json:"token_uri"`
		} `json:"installed"`
	}
	if err := json.Unmarshal(raw, &secret); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if secret.Installed.ClientID == "" {
		return nil, fmt.Errorf("credentials file %s has no installed-app client", path)
	}

	return &oauth2.Config{
		ClientID:     secret.Installed.ClientID,
		ClientSecret: secret.Installed.ClientSecret,
		Scopes:       []string{scopeSpreadsheets},
		Endpoint: oauth2.Endpoint{
			AuthURL:  secret.Installed.AuthURI,
			TokenURL: secret.Installed.TokenURI,
		},
	}, nil
}

// authorize runs the loopback consent flow: start a callback server on an
// ephemeral port, hand the user the consent URL, and exchange the returned
// code for a token.
func authorize(ctx context.Context, cfg *oauth2.Config, log *slog.Logger) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}
	defer ln.Close()

	cfg.RedirectURL = fmt.Sprintf("http://%s/oauth2/callback", ln.Addr())
	csrfState := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	r := chi.NewRouter()
	r.Get("/oauth2/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("state") != csrfState {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("callback state mismatch")
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			http.Error(w, "authorization denied", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", errMsg)
			return
		}
		fmt.Fprintln(w, "Authorized. You can close this window and return to the terminal.")
		codeCh <- q.Get("code")
	})

	srv := &http.Server{Handler: r}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(csrfState, oauth2.AccessTypeOffline)
	log.Info("waiting for browser authorization")
	fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize access:\n\n  %s\n\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

func loadToken(ctx context.Context, store TokenStore) (*oauth2.Token, error) {
	raw, err := store.Token(ctx, tokenProvider)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		// A corrupt blob just forces a fresh consent flow.
		return nil, nil
	}
	return &tok, nil
}

func saveToken(ctx context.Context, store TokenStore, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return store.SetToken(ctx, tokenProvider, string(raw))
}

// savingTokenSource persists the token whenever the underlying source rotates
// it, so refresh tokens survive across runs.
type savingTokenSource struct {
	ctx   context.Context
	base  oauth2.TokenSource
	store TokenStore
	last  *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		if err := saveToken(s.ctx, s.store, tok); err != nil {
			return nil, err
		}
		s.last = tok
	}
	return tok, nil
}
