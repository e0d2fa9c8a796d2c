package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	"github.com/uran124/avito-relay/internal/config"
	"github.com/uran124/avito-relay/internal/credentials"
	apperrors "github.com/uran124/avito-relay/internal/errors"
	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/util"
)

// Options configures the marketplace OAuth manager. Client id/secret from
// the environment seed the credential file on first use; afterwards the
// file is authoritative.
type Options struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	AccountID    string
	RedirectURI  string
	HTTPClient   *http.Client
}

// Manager owns the marketplace access token lifecycle. All grants run
// under a single mutex, so concurrent requests never race a refresh:
// the first caller exchanges, the rest reuse the saved token.
type Manager struct {
	store *credentials.Store
	opts  Options
	http  *http.Client

	mu  sync.Mutex
	now func() time.Time
}

func NewManager(store *credentials.Store, opts Options) *Manager {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.TokenRequestTimeout}
	}
	return &Manager{
		store: store,
		opts:  opts,
		http:  client,
		now:   time.Now,
	}
}

type grantResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Token returns a usable access token, refreshing or re-issuing as needed.
// A token is considered stale a short skew before its server-side expiry.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.load()
	if err != nil {
		return "", err
	}

	if creds.Valid(m.now(), config.TokenExpirySkew) {
		return creds.AccessToken, nil
	}

	var lastErr error
	if creds.RefreshToken != "" {
		resp, err := m.grant(ctx, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {creds.RefreshToken},
			"client_id":     {creds.ClientID},
			"client_secret": {creds.ClientSecret},
		})
		if err == nil {
			if err := m.apply(&creds, resp); err != nil {
				return "", err
			}
			audit.Log(audit.Event{Type: audit.EventTokenRefresh, Details: map[string]interface{}{
				"token": util.MaskSecret(creds.AccessToken),
			}})
			return creds.AccessToken, nil
		}
		lastErr = err
		log.Warn().Err(err).Msg("refresh grant failed, falling back to client credentials")
	}

	resp, err := m.grant(ctx, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", apperrors.TokenExchange(lastErr)
	}
	if err := m.apply(&creds, resp); err != nil {
		return "", err
	}
	audit.Log(audit.Event{Type: audit.EventTokenIssue, Details: map[string]interface{}{
		"token": util.MaskSecret(creds.AccessToken),
	}})
	return creds.AccessToken, nil
}

// ExchangeCode trades an authorization code for tokens and persists them.
// Used by the operator OAuth callback endpoint.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (model.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.load()
	if err != nil {
		return model.Credentials{}, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
	}
	if m.opts.RedirectURI != "" {
		form.Set("redirect_uri", m.opts.RedirectURI)
	}

	resp, err := m.grant(ctx, form)
	if err != nil {
		return model.Credentials{}, apperrors.TokenExchange(err)
	}
	if err := m.apply(&creds, resp); err != nil {
		return model.Credentials{}, err
	}
	audit.Log(audit.Event{Type: audit.EventTokenIssue, Details: map[string]interface{}{
		"grant": "authorization_code",
		"token": util.MaskSecret(creds.AccessToken),
	}})
	return creds, nil
}

// load reads the credential file and seeds missing fields from the
// environment. An unreadable file is not fatal: the record is rebuilt
// from the next successful grant.
func (m *Manager) load() (model.Credentials, error) {
	creds, err := m.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("credential file unreadable, reseeding from config")
		creds = model.Credentials{}
	}
	if creds.ClientID == "" {
		creds.ClientID = m.opts.ClientID
	}
	if creds.ClientSecret == "" {
		creds.ClientSecret = m.opts.ClientSecret
	}
	if creds.AccountID == "" {
		creds.AccountID = m.opts.AccountID
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return model.Credentials{}, apperrors.NoCredentials()
	}
	return creds, nil
}

// apply merges a grant response into the record and saves it immediately,
// before the token is handed to the caller. A response without a new
// refresh token keeps the old one.
func (m *Manager) apply(creds *model.Credentials, resp grantResponse) error {
	creds.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		creds.RefreshToken = resp.RefreshToken
	}
	if resp.ExpiresIn > 0 {
		creds.ExpiresAt = m.now().Unix() + resp.ExpiresIn
	} else {
		creds.ExpiresAt = 0
	}
	if err := m.store.Save(*creds); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

func (m *Manager) grant(ctx context.Context, form url.Values) (grantResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.opts.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return grantResponse{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return grantResponse{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return grantResponse{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return grantResponse{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, util.Truncate(string(body), config.RawResponseLogLimit))
	}

	var parsed grantResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return grantResponse{}, fmt.Errorf("parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return grantResponse{}, fmt.Errorf("token response missing access_token")
	}
	return parsed, nil
}
