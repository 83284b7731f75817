package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultRefreshBuffer is how close to expiry a token may get before it is regenerated.
const DefaultRefreshBuffer = 5 * time.Minute

// ErrCredential is returned when the token endpoint refuses to issue a credential.
var ErrCredential = errors.New("upstream credential request failed")

// Token is a bearer credential issued by the vendor token endpoint.
type Token struct {
	Value     string    `json:"value"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Credentials supplies authorization for upstream requests.
type Credentials interface {
	AuthorizationHeader(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (Token, error)
}

// TokenProvider caches one client-credentials token and regenerates it when it
// is within the refresh buffer of its expiry.
type TokenProvider struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
	buffer     time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	current Token
}

// NewTokenProvider builds a provider for the given token endpoint.
func NewTokenProvider(tokenURL, clientID, clientSecret string, httpClient *http.Client) *TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenProvider{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		buffer:     DefaultRefreshBuffer,
		now:        time.Now,
	}
}

// GetToken returns a valid token, fetching a new one if the cached token is missing or expiring.
func (p *TokenProvider) GetToken(ctx context.Context) (Token, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if p.usableLocked() {
		return p.current, nil
	}
	return p.fetchLocked(ctx)
}

// RefreshToken discards the cached token and fetches a new one.
func (p *TokenProvider) RefreshToken(ctx context.Context) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchLocked(ctx)
}

// AuthorizationHeader returns the value for the Authorization header.
func (p *TokenProvider) AuthorizationHeader(ctx context.Context) (string, error) {
	token, err := p.GetToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Type + " " + token.Value, nil
}

func (p *TokenProvider) cached() (Token, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.usableLocked() {
		return Token{}, false
	}
	return p.current, true
}

func (p *TokenProvider) usableLocked() bool {
	if p.current.Value == "" {
		return false
	}
	if p.current.ExpiresAt.IsZero() {
		return true
	}
	return p.now().Add(p.buffer).Before(p.current.ExpiresAt)
}

func (p *TokenProvider) fetchLocked(ctx context.Context) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	issued, err := p.cfg.Token(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrCredential, err)
	}
	if issued.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: response missing access_token", ErrCredential)
	}
	if !issued.Expiry.IsZero() && !p.now().Before(issued.Expiry) {
		return Token{}, fmt.Errorf("%w: token already expired at %s", ErrCredential, issued.Expiry.Format(time.RFC3339))
	}

	p.current = Token{
		Value:     issued.AccessToken,
		Type:      issued.Type(),
		ExpiresAt: issued.Expiry,
	}
	return p.current, nil
}
