package oauthmodel_test

import (
	"testing"

	"github.com/dnovikov/ironio-oauth/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Validate(t *testing.T) {
	valid := oauthmodel.Credentials{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://hook"}
	require.NoError(t, valid.Validate())

	missingID := valid
	missingID.ClientID = ""
	require.ErrorIs(t, missingID.Validate(), oauthmodel.ErrMissingClientID)

	missingSecret := valid
	missingSecret.ClientSecret = " "
	require.ErrorIs(t, missingSecret.Validate(), oauthmodel.ErrMissingClientSecret)

	missingRedirect := valid
	missingRedirect.RedirectURI = ""
	require.ErrorIs(t, missingRedirect.Validate(), oauthmodel.ErrInvalidRedirectUri)
}

func TestTokenRequest_Form(t *testing.T) {
	creds := oauthmodel.Credentials{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://hook?a=b"}
	form := oauthmodel.NewAuthorizationCodeRequest(creds, "code-1").Form()

	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "id", form.Get("client_id"))
	require.Equal(t, "secret", form.Get("client_secret"))
	require.Equal(t, "code-1", form.Get("code"))
	require.Equal(t, "https://hook?a=b", form.Get("redirect_uri"))
	require.False(t, form.Has("refresh_token"))
}

func TestTokenRequest_Validate(t *testing.T) {
	creds := oauthmodel.Credentials{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://hook"}
	require.NoError(t, oauthmodel.NewAuthorizationCodeRequest(creds, "code-1").Validate())
	require.ErrorIs(t, oauthmodel.NewAuthorizationCodeRequest(creds, "").Validate(), oauthmodel.ErrMissingCode)
	require.ErrorIs(t, oauthmodel.NewAuthorizationCodeRequest(creds, "  ").Validate(), oauthmodel.ErrMissingCode)
}

func TestAuthorizationState_String(t *testing.T) {
	require.Equal(t, "no_code", oauthmodel.NoCode.String())
	require.Equal(t, "has_code", oauthmodel.HasCode.String())
	require.Equal(t, "has_token", oauthmodel.HasToken.String())
	require.Equal(t, "unknown", oauthmodel.AuthorizationState(9).String())
}
