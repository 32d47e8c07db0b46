package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
)

// GoogleEndpoint is Google's OAuth 2.0 endpoint for web server applications.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     GoogleEndpoint,
		Scopes:       []string{gcal.CalendarScope},
	}
}

// refreshMargin is how close to expiry a token is refreshed ahead of use.
const refreshMargin = time.Minute

// Credentials holds the shop's Google token. The token is loaded lazily from
// the store, checked for expiry before every use and refreshed when needed.
type Credentials struct {
	cfg   *oauth2.Config
	store TokenStore
	now   func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

func NewCredentials(cfg *oauth2.Config, store TokenStore) *Credentials {
	return &Credentials{cfg: cfg, store: store, now: time.Now}
}

// AuthCodeURL is where the admin is sent to grant calendar access. Offline
// access with forced consent makes Google return a refresh token.
func (c *Credentials) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (c *Credentials) Exchange(ctx context.Context, code string) error {
	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if err := c.store.SaveToken(ctx, tok); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return nil
}

// Connected reports whether a token is available, refreshing it if needed.
func (c *Credentials) Connected(ctx context.Context) bool {
	_, err := c.Token(ctx)
	return err == nil
}

// Token returns a token that is valid for at least refreshMargin.
func (c *Credentials) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil {
		tok, err := c.store.LoadToken(ctx)
		if errors.Is(err, ErrNoToken) {
			return nil, ErrNotConnected
		}
		if err != nil {
			return nil, err
		}
		c.token = tok
	}

	if c.fresh(c.token) {
		return c.token, nil
	}
	if c.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired and no refresh token", ErrNotConnected)
	}

	// Only the refresh token is passed on so the library always hits the token endpoint.
	tok, err := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: c.token.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.token.RefreshToken
	}
	if err := c.store.SaveToken(ctx, tok); err != nil {
		return nil, err
	}
	c.token = tok
	return tok, nil
}

func (c *Credentials) fresh(tok *oauth2.Token) bool {
	if tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return c.now().Add(refreshMargin).Before(tok.Expiry)
}

// TokenSource adapts Credentials to oauth2.TokenSource for one call's context.
func (c *Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) { return c.Token(ctx) })
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }
