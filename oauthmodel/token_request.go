package oauthmodel

import (
	"net/url"
	"strings"
)

// TokenRequest holds parameters for the access-token request, sent form
// encoded to the token endpoint.
type TokenRequest struct {
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Security: Never log or expose this value
	ClientSecret string

	// Code is the authorization code received through the webhook.
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string

	// RedirectURI must match the redirect_uri sent with the authorization request.
	RedirectURI string
}

// NewAuthorizationCodeRequest builds the exchange request for code.
func NewAuthorizationCodeRequest(creds Credentials, code string) TokenRequest {
	return TokenRequest{
		GrantType:    AuthorizationCodeGrant,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Code:         code,
		RedirectURI:  creds.RedirectURI,
	}
}

// Validate checks that there is a code to exchange.
func (r TokenRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return ErrMissingCode
	}
	return nil
}

// Form encodes the request body.
func (r TokenRequest) Form() url.Values {
	form := url.Values{}
	form.Set("grant_type", string(r.GrantType))
	form.Set("client_id", r.ClientID)
	form.Set("client_secret", r.ClientSecret)
	if r.Code != "" {
		form.Set("code", r.Code)
	}
	if r.RedirectURI != "" {
		form.Set("redirect_uri", r.RedirectURI)
	}
	return form
}
