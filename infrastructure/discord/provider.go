// Package discord resolves a Discord display name from an OAuth2 authorization code.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"treasure-hunt/errors"

	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://discord.com/oauth2/authorize"
	DefaultTokenURL = "https://discord.com/api/oauth2/token"
	DefaultUserURL  = "https://discord.com/api/users/@me"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserURL      string
	Timeout      time.Duration
}

type Provider struct {
	oauth   *oauth2.Config
	userURL string
	timeout time.Duration
	client  *http.Client
	log     *slog.Logger
}

// user is the subset of GET /users/@me we read.
type user struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

func NewProvider(config Config, log *slog.Logger) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(config.AuthURL, DefaultAuthURL),
				TokenURL:  orDefault(config.TokenURL, DefaultTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userURL: orDefault(config.UserURL, DefaultUserURL),
		timeout: config.Timeout,
		client:  &http.Client{},
		log:     log,
	}
}

// AuthCodeURL is the provider page the user is sent to, with state echoed back on callback.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Resolve exchanges the code and returns the user's display name.
// Every failure, including the timeout, is an upstream auth failure.
func (p *Provider) Resolve(ctx context.Context, code string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	started := time.Now()
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", errors.ErrUpstreamAuthFailure, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUpstreamAuthFailure, err)
	}
	response, err := p.oauth.Client(ctx, token).Do(request)
	if err != nil {
		return "", fmt.Errorf("%w: fetching user: %v", errors.ErrUpstreamAuthFailure, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return "", fmt.Errorf("%w: user endpoint answered %d", errors.ErrUpstreamAuthFailure, response.StatusCode)
	}

	var u user
	if err := json.NewDecoder(response.Body).Decode(&u); err != nil {
		return "", fmt.Errorf("%w: decoding user: %v", errors.ErrUpstreamAuthFailure, err)
	}

	identity := strings.TrimSpace(u.GlobalName)
	if identity == "" {
		identity = strings.TrimSpace(u.Username)
	}
	if identity == "" {
		return "", fmt.Errorf("%w: no usable display name", errors.ErrUpstreamAuthFailure)
	}

	p.log.Debug("Identity resolved", "identity", identity, "took", time.Since(started))
	return identity, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
