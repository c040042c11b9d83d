// Package executor makes requests authenticated with the stored access token.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
	"github.com/dnovikov/ironio-oauth/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// MissingTokenError is returned when a request is made before a token has been
// stored for the service.
type MissingTokenError struct {
	ServiceID string
}

func (e *MissingTokenError) Error() string {
	return fmt.Sprintf("no access token stored for service %q", e.ServiceID)
}

func (e *MissingTokenError) Is(target error) bool {
	return target == ierrors.ErrMissingToken
}

// StatusError is returned for responses with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Executor sends requests carrying the service's bearer token.
type Executor struct {
	store     token.Store
	serviceID string
	base      *http.Client
}

// New returns an executor reading tokens for serviceID from store. A nil base
// client uses http.DefaultClient.
func New(store token.Store, serviceID string, base *http.Client) *Executor {
	if base == nil {
		base = http.DefaultClient
	}
	return &Executor{store: store, serviceID: serviceID, base: base}
}

// Request performs a GET on rawURL and returns the response body.
func (e *Executor) Request(ctx context.Context, rawURL string) ([]byte, error) {
	return e.Do(ctx, http.MethodGet, rawURL, nil)
}

// Do performs an authenticated request. It fails with *MissingTokenError
// before any network I/O when no token is stored.
func (e *Executor) Do(ctx context.Context, method, rawURL string, body io.Reader) ([]byte, error) {
	client, err := e.client()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	log.Debug().Str("method", method).Str("url", req.URL.Redacted()).Int("status", resp.StatusCode).Msg("Authenticated request")
	if resp.StatusCode >= http.StatusBadRequest {
		return data, &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}

// client copies the base client with its transport wrapped by a static bearer
// token source. Redirect policy, cookie jar and timeout carry over.
func (e *Executor) client() (*http.Client, error) {
	tok, err := e.store.Get(e.serviceID)
	if errors.Is(err, token.ErrNotFound) {
		return nil, &MissingTokenError{ServiceID: e.serviceID}
	}
	if err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, &MissingTokenError{ServiceID: e.serviceID}
	}
	if tok.IsExpired() {
		log.Warn().Str("service", e.serviceID).Time("expired_at", tok.ExpiresAt()).Msg("Stored access token has expired")
	}

	// The static source never refreshes, so an expired token is still sent.
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(tok.OAuth2()),
			Base:   e.base.Transport,
		},
		CheckRedirect: e.base.CheckRedirect,
		Jar:           e.base.Jar,
		Timeout:       e.base.Timeout,
	}, nil
}
