// Package auth obtains and stores the OAuth2 token used for Google Calendar.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the
	// cloud console, placed in the taskctx config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the user's access and refresh tokens.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server listens for the OAuth redirect.
	LocalhostAuthPort = "6789"
)

// Scopes requested for calendar access.
var Scopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// ErrNotAuthenticated is returned when no usable token is stored.
var ErrNotAuthenticated = errors.New("not authenticated with Google Calendar, run 'taskctx auth'")

// Manager owns credentials.json and token.json in Dir.
type Manager struct {
	Dir    string
	Out    io.Writer
	logger *log.Logger
	mu     sync.Mutex
}

// NewManager creates a Manager rooted at dir. A nil logger selects log.Default().
func NewManager(dir string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{Dir: dir, Out: os.Stdout, logger: logger}
}

func (m *Manager) TokenPath() string {
	return filepath.Join(m.Dir, TokenFile)
}

// Config creates an oauth2.Config from the client secrets file.
func (m *Manager) Config() (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(m.Dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = m.fixRedirect(config.RedirectURL)
	return config, nil
}

// fixRedirect points localhost and out-of-band redirects at LocalhostAuthPort,
// where getTokenFromWeb listens.
func (m *Manager) fixRedirect(redirect string) string {
	if redirect == "urn:ietf:wg:oauth:2.0:oob" {
		fixed := fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
		m.logger.Printf("Overriding 'urn:ietf:wg:oauth:2.0:oob' RedirectURL to: %s", fixed)
		return fixed
	}

	parsedURL, err := url.Parse(redirect)
	if err != nil {
		m.logger.Printf("Warning: Could not parse RedirectURL '%s': %v. Using it as is.", redirect, err)
		return redirect
	}
	if parsedURL.Hostname() != "localhost" && parsedURL.Hostname() != "127.0.0.1" {
		m.logger.Printf("Warning: Configured RedirectURL in credentials.json is not a localhost callback or OOB: %s.", redirect)
		return redirect
	}
	if port := parsedURL.Port(); port != "" && port != LocalhostAuthPort {
		m.logger.Printf("Warning: credentials.json redirect uses port %s, forcing %s", port, LocalhostAuthPort)
	}
	parsedURL.Host = net.JoinHostPort(parsedURL.Hostname(), LocalhostAuthPort)
	return parsedURL.String()
}

// Token reads the stored token.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return tokenFromFile(m.TokenPath())
}

// Authenticated reports whether a token is stored that is either still valid
// or can be refreshed.
func (m *Manager) Authenticated() bool {
	tok, err := m.Token()
	if err != nil {
		return false
	}
	return tok.Valid() || tok.RefreshToken != ""
}

// ClearToken removes the stored token. A missing token is not an error.
func (m *Manager) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.Remove(m.TokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// SaveToken stores tok with owner-only permissions.
func (m *Manager) SaveToken(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return saveToken(m.TokenPath(), tok)
}

// Login runs the browser authorization flow and stores the resulting token.
func (m *Manager) Login(ctx context.Context) error {
	config, err := m.Config()
	if err != nil {
		return err
	}
	tok, err := m.getTokenFromWeb(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to get token from web: %w", err)
	}
	return m.SaveToken(tok)
}

// HTTPClient returns a client that refreshes the stored token as needed and
// writes refreshed tokens back to disk.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := m.Token()
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	config, err := m.Config()
	if err != nil {
		return nil, err
	}
	src := &savingSource{
		base:   config.TokenSource(ctx, tok),
		last:   tok,
		save:   m.SaveToken,
		logger: m.logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// savingSource persists a token whenever the underlying source hands out a
// new one.
type savingSource struct {
	base   oauth2.TokenSource
	mu     sync.Mutex
	last   *oauth2.Token
	save   func(*oauth2.Token) error
	logger *log.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := s.save(tok); err != nil {
			s.logger.Printf("Warning: Could not save refreshed token: %v", err)
		}
		s.last = tok
	}
	return tok, nil
}

// getTokenFromWeb runs the authorization code flow through a local web server.
func (m *Manager) getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler:      callbackHandler(codeCh, errCh),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	// AccessTypeOffline makes Google return a refresh token.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(m.Out, "Open the following URL in your browser to authorize taskctx:\n%s\n", authURL)
	m.logger.Println("Waiting for authorization code...")

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out, please try again")
	}
}

func callbackHandler(codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Authorization code not found", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
			default:
			}
			return
		}
		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
