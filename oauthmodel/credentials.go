package oauthmodel

import "strings"

// Credentials identify this worker as an OAuth client. RedirectURI is the
// worker webhook the provider sends the authorization code to.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Validate checks that every credential is present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return ErrMissingClientID
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return ErrMissingClientSecret
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return ErrInvalidRedirectUri
	}
	return nil
}
