package oauthmodel

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, client_secret, redirect_uri
	AuthorizationCodeGrant GrantType = "authorization_code"
)

// AuthorizationState tracks how far the handshake got in this invocation.
// It is rebuilt on every run from the payload and the token store.
type AuthorizationState int

const (
	// NoCode: no authorization code yet; the redirect flow has to be started.
	NoCode AuthorizationState = iota
	// HasCode: a code arrived with the payload and can be exchanged.
	HasCode
	// HasToken: an access token is stored. Terminal.
	HasToken
)

func (s AuthorizationState) String() string {
	switch s {
	case NoCode:
		return "no_code"
	case HasCode:
		return "has_code"
	case HasToken:
		return "has_token"
	}
	return "unknown"
}
