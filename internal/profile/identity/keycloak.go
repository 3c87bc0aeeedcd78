// Package identity mirrors profile names into the identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"beneficiary/internal/platform/privacy"
	"beneficiary/internal/sentinel"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/platform/circuit"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SSOResolver maps a user to their identity provider subject.
// Error contract: returns sentinel.ErrNotFound when the user has no linked
// account.
type SSOResolver interface {
	SSOID(ctx context.Context, userID id.UserID) (string, error)
}

// Config configures the Keycloak admin client.
type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	HTTPClient   HTTPDoer
}

// tokenSkew renews the service token before it actually expires.
const tokenSkew = 10 * time.Second

// Keycloak updates user names through the Keycloak admin REST API using a
// client-credentials service account.
type Keycloak struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	client       HTTPDoer
	resolver     SSOResolver
	breaker      *circuit.Breaker
	logger       *slog.Logger
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures a Keycloak client.
type Option func(*Keycloak)

func WithLogger(logger *slog.Logger) Option {
	return func(k *Keycloak) {
		k.logger = logger
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(k *Keycloak) {
		if b != nil {
			k.breaker = b
		}
	}
}

// NewKeycloak constructs the client. BaseURL, Realm and ClientID are required.
func NewKeycloak(cfg Config, resolver SSOResolver, opts ...Option) (*Keycloak, error) {
	if cfg.BaseURL == "" || cfg.Realm == "" || cfg.ClientID == "" {
		return nil, errors.New("keycloak base URL, realm and client ID are required")
	}
	if resolver == nil {
		return nil, errors.New("sso resolver is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	k := &Keycloak{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		realm:        cfg.Realm,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       client,
		resolver:     resolver,
		breaker:      circuit.New("keycloak"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// UpdateNames sets firstName and lastName on the user's identity provider
// account. Nil names are left unchanged; users without a linked account are
// skipped.
func (k *Keycloak) UpdateNames(ctx context.Context, userID id.UserID, firstName, lastName *string) error {
	if firstName == nil && lastName == nil {
		return nil
	}
	ssoID, err := k.resolver.SSOID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("resolve sso id: %w", err)
	}
	if !k.breaker.Allow() {
		return fmt.Errorf("keycloak circuit open: %w", sentinel.ErrUnavailable)
	}

	err = k.putNames(ctx, ssoID, firstName, lastName)
	if err != nil {
		if opened := k.breaker.RecordFailure(); opened && k.logger != nil {
			k.logger.WarnContext(ctx, "circuit opened",
				"circuit", k.breaker.Name(),
				"sso_id", privacy.MaskIdentifier(ssoID),
				"error", err,
			)
		}
		return err
	}
	if closed := k.breaker.RecordSuccess(); closed && k.logger != nil {
		k.logger.InfoContext(ctx, "circuit closed", "circuit", k.breaker.Name())
	}
	return nil
}

type namesUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

func (k *Keycloak) putNames(ctx context.Context, ssoID string, firstName, lastName *string) error {
	body, err := json.Marshal(namesUpdate{FirstName: firstName, LastName: lastName})
	if err != nil {
		return fmt.Errorf("encode names: %w", err)
	}
	token, err := k.accessToken(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s", k.baseURL, url.PathEscape(k.realm), url.PathEscape(ssoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("update keycloak user: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		k.dropToken()
		return fmt.Errorf("update keycloak user: status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("update keycloak user: %w", sentinel.ErrNotFound)
	default:
		return fmt.Errorf("update keycloak user: status %d", resp.StatusCode)
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (k *Keycloak) accessToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.token != "" && k.now().Before(k.tokenExpiry) {
		return k.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {k.clientID},
		"client_secret": {k.clientSecret},
	}
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, url.PathEscape(k.realm))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch keycloak token: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch keycloak token: status %d", resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode keycloak token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("keycloak token response has no access_token")
	}

	k.token = tr.AccessToken
	k.tokenExpiry = k.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSkew)
	return k.token, nil
}

func (k *Keycloak) dropToken() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.token = ""
}

// Disabled is used when no identity provider is configured.
type Disabled struct{}

func (Disabled) UpdateNames(context.Context, id.UserID, *string, *string) error { return nil }
