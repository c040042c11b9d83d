package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Token is an access token issued by the provider's token endpoint.
type Token struct {
	AccessToken  string         `json:"access_token"`
	ExpiresIn    int            `json:"expires_in"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExtraParams  map[string]any `json:"extra_params,omitempty"`
	IssuedAt     time.Time      `json:"issued_at"`
}

// New creates a token issued now.
func New(accessToken string, expiresIn int) *Token {
	return &Token{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
		ExtraParams: map[string]any{},
		IssuedAt:    NowTimeFunc(),
	}
}

// ExpiresAt returns the expiry time, or the zero time when the provider gave
// no lifetime.
func (t *Token) ExpiresAt() time.Time {
	if t.ExpiresIn <= 0 || t.IssuedAt.IsZero() {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsExpired reports whether the token lifetime has elapsed. Tokens without a
// lifetime never expire.
func (t *Token) IsExpired() bool {
	exp := t.ExpiresAt()
	if exp.IsZero() {
		return false
	}
	return !NowTimeFunc().Before(exp)
}

// HasRefreshToken reports whether the provider issued a refresh token.
func (t *Token) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// OAuth2 converts the token for use with golang.org/x/oauth2 transports.
func (t *Token) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt(),
	}
	if len(t.ExtraParams) > 0 {
		tok = tok.WithExtra(t.ExtraParams)
	}
	return tok
}

// Clone returns a deep enough copy for stores to hand out.
func (t *Token) Clone() *Token {
	c := *t
	if t.ExtraParams != nil {
		c.ExtraParams = make(map[string]any, len(t.ExtraParams))
		for k, v := range t.ExtraParams {
			c.ExtraParams[k] = v
		}
	}
	return &c
}

// Marshal encodes the token for persistence.
func (t *Token) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// Unmarshal decodes a persisted token. Whole numbers in ExtraParams come back
// as int64 rather than float64.
func Unmarshal(data []byte) (*Token, error) {
	var t Token
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if t.ExtraParams == nil {
		t.ExtraParams = map[string]any{}
	}
	for k, v := range t.ExtraParams {
		t.ExtraParams[k] = NormalizeJSON(v)
	}
	return &t, nil
}

// NormalizeJSON replaces json.Number with int64 or float64 throughout v.
func NormalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, inner := range val {
			val[k] = NormalizeJSON(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = NormalizeJSON(inner)
		}
		return val
	}
	return v
}

// WritePolicy decides what happens when two invocations store a token for the
// same service.
type WritePolicy string

const (
	// LastWriteWins overwrites any stored token.
	LastWriteWins WritePolicy = "last-write-wins"
	// FirstWriteWins keeps the stored token and discards the new one.
	FirstWriteWins WritePolicy = "first-write-wins"
)

func (p WritePolicy) String() string {
	return string(p)
}

// UnmarshalText lets the policy be read from the environment.
func (p *WritePolicy) UnmarshalText(text []byte) error {
	switch v := WritePolicy(strings.TrimSpace(string(text))); v {
	case LastWriteWins, FirstWriteWins:
		*p = v
		return nil
	case "":
		*p = LastWriteWins
		return nil
	}
	return fmt.Errorf("unknown write policy %q", string(text))
}
