package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dnovikov/ironio-oauth/oauthmodel"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// maxTokenResponseSize caps how much of the token endpoint body is read.
const maxTokenResponseSize = 1 << 20

// Options configures a Client.
type Options struct {
	// ServiceID is the token store key.
	ServiceID   string
	Credentials oauthmodel.Credentials

	// APIURI is prefixed to both endpoints, e.g. "https://api.example.com".
	APIURI                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	Scopes                []string

	// Env is the environment the worker runs for; states are bound to it.
	Env string
	// AuthorizationCode and State come from the payload, when the provider
	// redirected back through the webhook.
	AuthorizationCode string
	State             string

	// StateSigner signs and verifies states. Defaults to one keyed by the
	// client secret.
	StateSigner *StateSigner
	// AllowMissingState accepts a code that arrives without any state, for
	// providers that do not echo it. A state that is present is always checked.
	AllowMissingState bool
	WritePolicy       token.WritePolicy
}

// Client drives the authorization-code handshake for one service:
// NoCode -> HasCode -> HasToken.
type Client struct {
	opts     Options
	store    token.Store
	doer     HTTPDoer
	signer   *StateSigner
	authURL  string
	tokenURL string
}

// NewClient validates opts and returns a client writing tokens to store.
// A nil doer uses DefaultHTTPClient.
func NewClient(opts Options, store token.Store, doer HTTPDoer) (*Client, error) {
	if store == nil {
		return nil, errors.New("auth: token store is required")
	}
	if strings.TrimSpace(opts.ServiceID) == "" {
		return nil, errors.New("auth: service id is required")
	}
	if err := opts.Credentials.Validate(); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	authURL, err := endpointURL(opts.APIURI, opts.AuthorizationEndpoint)
	if err != nil {
		return nil, fmt.Errorf("auth: authorization endpoint: %w", err)
	}
	tokenURL, err := endpointURL(opts.APIURI, opts.TokenEndpoint)
	if err != nil {
		return nil, fmt.Errorf("auth: token endpoint: %w", err)
	}

	signer := opts.StateSigner
	if signer == nil {
		signer, err = NewStateSigner(opts.Credentials.ClientSecret, opts.Credentials.ClientID, DefaultStateTTL)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	if doer == nil {
		doer = DefaultHTTPClient(0)
	}
	if opts.WritePolicy == "" {
		opts.WritePolicy = token.LastWriteWins
	}

	return &Client{
		opts:     opts,
		store:    store,
		doer:     doer,
		signer:   signer,
		authURL:  authURL,
		tokenURL: tokenURL,
	}, nil
}

// endpointURL joins the API base and an endpoint path the way the provider
// documents them: plain concatenation.
func endpointURL(base, endpoint string) (string, error) {
	raw := base + endpoint
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", raw)
	}
	return raw, nil
}

// ServiceID returns the token store key.
func (c *Client) ServiceID() string {
	return c.opts.ServiceID
}

// AuthorizationEndpoint returns {api_uri}{oauth_auth_endpoint}.
func (c *Client) AuthorizationEndpoint() string {
	return c.authURL
}

// AccessTokenEndpoint returns {api_uri}{oauth_token_endpoint}.
func (c *Client) AccessTokenEndpoint() string {
	return c.tokenURL
}

func (c *Client) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.opts.Credentials.ClientID,
		ClientSecret: c.opts.Credentials.ClientSecret,
		RedirectURL:  c.opts.Credentials.RedirectURI,
		Scopes:       c.opts.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authURL,
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// HasAuthorizationCode reports whether the payload carried a code.
func (c *Client) HasAuthorizationCode() bool {
	return strings.TrimSpace(c.opts.AuthorizationCode) != ""
}

// HasAccessToken reports whether the store holds a token for this service.
func (c *Client) HasAccessToken() (bool, error) {
	has, err := c.store.Has(c.opts.ServiceID)
	if err != nil {
		return false, fmt.Errorf("check token store: %w", err)
	}
	return has, nil
}

// AccessToken returns the stored access token.
func (c *Client) AccessToken() (string, error) {
	tok, err := c.store.Get(c.opts.ServiceID)
	if err != nil {
		return "", fmt.Errorf("read token store: %w", err)
	}
	return tok.AccessToken, nil
}

// State reconstructs the handshake state from the payload and the store.
func (c *Client) State() (oauthmodel.AuthorizationState, error) {
	has, err := c.HasAccessToken()
	if err != nil {
		return oauthmodel.NoCode, err
	}
	if has {
		return oauthmodel.HasToken, nil
	}
	if c.HasAuthorizationCode() {
		return oauthmodel.HasCode, nil
	}
	return oauthmodel.NoCode, nil
}

// AuthorizationURL builds the authorization request URL with a fresh signed
// state.
func (c *Client) AuthorizationURL() (string, error) {
	state, err := c.signer.Sign(c.opts.Env)
	if err != nil {
		return "", err
	}
	return c.oauth2Config().AuthCodeURL(state), nil
}

// RequestAuthorizationCode starts the redirect flow. The provider delivers
// the code through the webhook to a later invocation, so nothing is read from
// the response. It does nothing once a code or token is present.
func (c *Client) RequestAuthorizationCode(ctx context.Context) error {
	state, err := c.State()
	if err != nil {
		return err
	}
	if state >= oauthmodel.HasCode {
		log.Debug().Str("service", c.opts.ServiceID).Stringer("state", state).Msg("Skipping authorization code request")
		return nil
	}

	authURL, err := c.AuthorizationURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return fmt.Errorf("create authorization request: %w", err)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("authorization request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("authorization request: unexpected status %d", resp.StatusCode)
	}
	log.Info().Str("service", c.opts.ServiceID).Int("status", resp.StatusCode).Msg("Authorization code requested")
	return nil
}

// RequestAccessToken exchanges the payload's code for a token and stores it.
// It does nothing when a token is already stored or no code is present.
func (c *Client) RequestAccessToken(ctx context.Context) error {
	has, err := c.HasAccessToken()
	if err != nil {
		return err
	}
	if has || !c.HasAuthorizationCode() {
		log.Debug().Str("service", c.opts.ServiceID).Bool("has_token", has).Msg("Skipping access token request")
		return nil
	}

	if err := c.verifyState(); err != nil {
		return err
	}

	tok, err := c.exchange(ctx)
	if err != nil {
		return err
	}

	stored, err := token.Save(c.store, c.opts.WritePolicy, c.opts.ServiceID, tok)
	if err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if !stored {
		log.Warn().Str("service", c.opts.ServiceID).Stringer("policy", c.opts.WritePolicy).
			Msg("Another invocation stored a token first; keeping it")
		return nil
	}
	log.Info().Str("service", c.opts.ServiceID).Int("expires_in", tok.ExpiresIn).Msg("Access token stored")
	return nil
}

func (c *Client) verifyState() error {
	if c.opts.State == "" {
		if c.opts.AllowMissingState {
			log.Warn().Str("service", c.opts.ServiceID).Msg("Authorization code arrived without a state; accepting it")
			return nil
		}
		return fmt.Errorf("%w: authorization code arrived without a state", ErrInvalidState)
	}
	return c.signer.Verify(c.opts.State, c.opts.Env)
}

func (c *Client) exchange(ctx context.Context) (*token.Token, error) {
	tokenReq := oauthmodel.NewAuthorizationCodeRequest(c.opts.Credentials, c.opts.AuthorizationCode)
	if err := tokenReq.Validate(); err != nil {
		return nil, err
	}
	form := tokenReq.Form()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	tok, err := ParseTokenResponse(body)
	if err != nil {
		var tre *TokenResponseError
		if errors.As(err, &tre) && resp.StatusCode >= http.StatusBadRequest {
			tre.StatusCode = resp.StatusCode
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &TokenResponseError{
			Message:    "unexpected status from token endpoint",
			StatusCode: resp.StatusCode,
		}
	}
	return tok, nil
}

// Authorize runs both stages. A failed authorization code request does not
// stop the exchange: the code arrives on a later invocation anyway. Calling
// it again after a token is stored makes no network calls.
func (c *Client) Authorize(ctx context.Context) error {
	if err := c.RequestAuthorizationCode(ctx); err != nil {
		log.Warn().Err(err).Str("service", c.opts.ServiceID).Msg("Authorization code request failed")
	}
	return c.RequestAccessToken(ctx)
}
