// Package worker wires a parsed payload and environment configuration into an
// authorization client and request executor for a single task invocation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dnovikov/ironio-oauth/auth"
	"github.com/dnovikov/ironio-oauth/environment"
	"github.com/dnovikov/ironio-oauth/executor"
	"github.com/dnovikov/ironio-oauth/oauthmodel"
	"github.com/dnovikov/ironio-oauth/payload"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/dnovikov/ironio-oauth/webhook"
	"github.com/rs/zerolog/log"
)

// DefaultServiceID is the token store key used when none is configured.
const DefaultServiceID = "IronIoOAuthService"

// Result is the outcome of Run.
type Result struct {
	State oauthmodel.AuthorizationState
	// Body is the callback response, nil when no token was available.
	Body []byte
}

// Worker holds everything one invocation needs.
type Worker struct {
	payload    payload.Payload
	resolver   *environment.Resolver
	store      token.Store
	client     *auth.Client
	executor   *executor.Executor
	webhookURL string

	serviceID    string
	httpClient   *http.Client
	writePolicy  token.WritePolicy
	requireState bool
	stateTTL     time.Duration
}

// Option modifies a Worker before its collaborators are built.
type Option func(*Worker)

// WithServiceID sets the token store key.
func WithServiceID(id string) Option {
	return func(w *Worker) {
		w.serviceID = id
	}
}

// WithHTTPClient sets the client used for provider and callback requests.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Worker) {
		w.httpClient = c
	}
}

// WithWritePolicy sets how a token is stored when another invocation raced us.
func WithWritePolicy(p token.WritePolicy) Option {
	return func(w *Worker) {
		w.writePolicy = p
	}
}

// WithRequireState controls whether an authorization code arriving without a
// state is rejected. It is on by default; turn it off only for providers that
// do not echo state back.
func WithRequireState(require bool) Option {
	return func(w *Worker) {
		w.requireState = require
	}
}

// WithStateTTL sets how long an issued state stays valid.
func WithStateTTL(ttl time.Duration) Option {
	return func(w *Worker) {
		w.stateTTL = ttl
	}
}

// New resolves the configuration for the payload's environment and builds the
// client and executor. Missing configuration fails here, before any request.
func New(cfg *environment.Config, p payload.Payload, store token.Store, options ...Option) (*Worker, error) {
	if cfg == nil {
		return nil, errors.New("worker: configuration is required")
	}
	if store == nil {
		return nil, errors.New("worker: token store is required")
	}

	p, err := payload.Parse(p)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		payload:      p,
		store:        store,
		serviceID:    DefaultServiceID,
		writePolicy:  token.LastWriteWins,
		requireState: true,
		stateTTL:     auth.DefaultStateTTL,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.httpClient == nil {
		w.httpClient = auth.DefaultHTTPClient(0)
	}

	w.resolver, err = cfg.For(p.Env)
	if err != nil {
		return nil, err
	}
	values, err := w.resolver.ResolveAll(environment.RequiredKeys...)
	if err != nil {
		return nil, err
	}

	w.webhookURL, err = webhook.URL(webhook.Params{
		Base:       w.resolver.ResolveOr(environment.KeyWebhookBase, webhook.DefaultBase),
		ProjectID:  values[environment.KeyProjectID],
		WorkerName: values[environment.KeyWorkerName],
		Token:      values[environment.KeyToken],
		Env:        p.Env,
	})
	if err != nil {
		return nil, err
	}

	// The webhook token and project id are published in the redirect URI, so
	// the state key comes from a secret of its own.
	if values[environment.KeyStateSecret] == values[environment.KeyToken] {
		return nil, &environment.ConfigError{
			Env:    p.Env,
			Key:    environment.KeyStateSecret,
			Reason: "must differ from the webhook token",
		}
	}
	signer, err := auth.NewStateSigner(values[environment.KeyStateSecret], values[environment.KeyProjectID], w.stateTTL)
	if err != nil {
		return nil, err
	}

	w.client, err = auth.NewClient(auth.Options{
		ServiceID: w.serviceID,
		Credentials: oauthmodel.Credentials{
			ClientID:     values[environment.KeyUsername],
			ClientSecret: values[environment.KeyPassword],
			RedirectURI:  w.webhookURL,
		},
		APIURI:                values[environment.KeyAPIURI],
		AuthorizationEndpoint: values[environment.KeyOAuthAuthEndpoint],
		TokenEndpoint:         values[environment.KeyOAuthTokenEndpoint],
		Scopes:                scopes(w.resolver),
		Env:                   p.Env,
		AuthorizationCode:     p.AuthorizationCode,
		State:                 p.State,
		StateSigner:           signer,
		AllowMissingState:     !w.requireState,
		WritePolicy:           w.writePolicy,
	}, store, w.httpClient)
	if err != nil {
		return nil, err
	}

	w.executor = executor.New(store, w.serviceID, w.httpClient)
	return w, nil
}

// scopes splits the optional scope value on spaces or commas.
func scopes(r *environment.Resolver) []string {
	raw, ok := r.Lookup(environment.KeyScope)
	if !ok {
		return nil
	}
	return strings.FieldsFunc(raw, func(c rune) bool {
		return c == ' ' || c == ','
	})
}

// Client returns the authorization client.
func (w *Worker) Client() *auth.Client {
	return w.client
}

// Executor returns the request executor.
func (w *Worker) Executor() *executor.Executor {
	return w.executor
}

// WebhookURL returns the redirect URI registered with the provider.
func (w *Worker) WebhookURL() string {
	return w.webhookURL
}

// Payload returns the validated payload.
func (w *Worker) Payload() payload.Payload {
	return w.payload
}

// Run authorizes and, once a token is stored, requests callbackURL with it.
// An empty callbackURL skips the request.
func (w *Worker) Run(ctx context.Context, callbackURL string) (Result, error) {
	logger := log.With().Str("env", w.payload.Env).Str("service", w.serviceID).Logger()

	if err := w.client.Authorize(ctx); err != nil {
		return Result{}, fmt.Errorf("authorize: %w", err)
	}

	state, err := w.client.State()
	if err != nil {
		return Result{}, err
	}
	result := Result{State: state}
	if state != oauthmodel.HasToken {
		logger.Info().Stringer("state", state).Msg("Waiting for the provider to call the webhook back")
		return result, nil
	}
	if callbackURL == "" {
		logger.Info().Msg("Authorized; no callback URL configured")
		return result, nil
	}

	body, err := w.executor.Request(ctx, callbackURL)
	if err != nil {
		return result, fmt.Errorf("callback request: %w", err)
	}
	result.Body = body
	logger.Info().Int("bytes", len(body)).Msg("Callback request completed")
	return result, nil
}
