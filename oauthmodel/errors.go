package oauthmodel

import "errors"

var (
	ErrMissingClientID     = errors.New("missing client id")
	ErrMissingClientSecret = errors.New("missing client secret")
	ErrInvalidRedirectUri  = errors.New("invalid or no redirect uri")
	ErrMissingCode         = errors.New("missing authorization code")
)
