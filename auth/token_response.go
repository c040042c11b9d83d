package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dnovikov/ironio-oauth/token"
)

// Token endpoint response fields.
const (
	fieldAccessToken      = "access_token"
	fieldExpiresIn        = "expires_in"
	fieldRefreshToken     = "refresh_token"
	fieldError            = "error"
	fieldErrorDescription = "error_description"
)

// ParseTokenResponse turns a token endpoint body into a Token. Provider errors
// take precedence over everything else, error_description over error.
// Fields other than access_token, expires_in and refresh_token end up in
// ExtraParams.
func ParseTokenResponse(body []byte) (*token.Token, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, &TokenResponseError{Message: "Unable to parse response."}
	}

	errCode, _ := stringField(data, fieldError)
	if desc, ok := stringField(data, fieldErrorDescription); ok {
		return nil, &TokenResponseError{
			Message:     fmt.Sprintf("Error in retrieving token: %q", desc),
			Code:        errCode,
			Description: desc,
		}
	}
	if errCode != "" || data[fieldError] != nil {
		return nil, &TokenResponseError{
			Message: fmt.Sprintf("Error in retrieving token: %q", errCode),
			Code:    errCode,
		}
	}

	accessToken, ok := stringField(data, fieldAccessToken)
	if !ok || accessToken == "" {
		return nil, &TokenResponseError{Message: "Response does not contain an access_token."}
	}

	expiresIn, err := intField(data, fieldExpiresIn)
	if err != nil {
		return nil, &TokenResponseError{Message: err.Error()}
	}

	tok := token.New(accessToken, expiresIn)
	if refresh, ok := stringField(data, fieldRefreshToken); ok {
		tok.RefreshToken = refresh
	}

	delete(data, fieldAccessToken)
	delete(data, fieldExpiresIn)
	delete(data, fieldRefreshToken)
	for k, v := range data {
		tok.ExtraParams[k] = token.NormalizeJSON(v)
	}
	return tok, nil
}

// stringField reports a non-null field rendered as a string.
func stringField(data map[string]any, key string) (string, bool) {
	switch v := data[key].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// intField reads a lifetime in seconds. Absent means unknown and yields 0.
func intField(data map[string]any, key string) (int, error) {
	switch v := data[key].(type) {
	case nil:
		return 0, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", key, v.String())
		}
		return int(f), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", key, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("invalid %s of type %T", key, data[key])
}
