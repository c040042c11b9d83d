// Package payload normalises the one-shot worker input into a Payload.
//
// A task is queued either directly, with a structured JSON payload, or through
// the provider redirect hitting the worker webhook, in which case the payload is
// the URL-encoded query string (env=...&code=...&state=...).
package payload

import (
	"fmt"
	"net/url"
	"strings"

	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
	"github.com/dnovikov/ironio-oauth/internal/utils"
)

const (
	envField   = "env"
	codeField  = "code"
	stateField = "state"
)

// Payload is the canonical worker input. It is immutable once parsed.
type Payload struct {
	Env               string
	AuthorizationCode string
	State             string
}

// HasAuthorizationCode reports whether the payload carries a code to exchange.
func (p Payload) HasAuthorizationCode() bool {
	return strings.TrimSpace(p.AuthorizationCode) != ""
}

// Input is one of RawString, Record or Payload.
type Input interface {
	input()
}

// RawString is a URL-encoded payload as delivered by the webhook.
type RawString string

// Record is a structured payload. Env is required.
type Record struct {
	Env               *string `json:"env"`
	AuthorizationCode *string `json:"authorization_code"`
	State             *string `json:"state"`
}

func (RawString) input() {}
func (Record) input()    {}
func (Payload) input()   {}

// ParseError reports a payload that cannot be decoded or lacks an env.
// Input holds the raw string when there was one; it is kept out of Error()
// because it may carry an authorization code.
type ParseError struct {
	Reason string
	Input  string
}

func (e *ParseError) Error() string {
	return "parse payload: " + e.Reason
}

func (e *ParseError) Is(target error) bool {
	return target == ierrors.ErrParse
}

// Parse decodes in into a Payload. Parsing an already parsed Payload returns it
// unchanged when it is valid and fails the same way every time when it is not.
func Parse(in Input) (Payload, error) {
	switch v := in.(type) {
	case RawString:
		return parseRaw(string(v))
	case Record:
		return parseRecord(v)
	case Payload:
		return parseRecord(Record{
			Env:               utils.Ptr(v.Env),
			AuthorizationCode: utils.Ptr(v.AuthorizationCode),
			State:             utils.Ptr(v.State),
		})
	case nil:
		return Payload{}, &ParseError{Reason: "payload is empty"}
	}
	return Payload{}, &ParseError{Reason: fmt.Sprintf("unsupported payload type %T", in)}
}

// ParseString is shorthand for Parse(RawString(s)).
func ParseString(s string) (Payload, error) {
	return Parse(RawString(s))
}

// parseRaw decodes an "a=b&c=d" payload. Pairs are split on '&' only, so a
// ';' inside a value is kept as is.
func parseRaw(raw string) (Payload, error) {
	values := make(map[string]string)
	for _, pair := range strings.Split(strings.TrimSpace(raw), "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return Payload{}, &ParseError{Reason: "cannot parse payload string: " + err.Error(), Input: raw}
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return Payload{}, &ParseError{Reason: "cannot parse payload string: " + err.Error(), Input: raw}
		}
		// First occurrence wins, as with url.Values.Get.
		if _, seen := values[key]; !seen {
			values[key] = value
		}
	}
	if len(values) == 0 {
		return Payload{}, &ParseError{Reason: "cannot parse payload string", Input: raw}
	}

	var rec Record
	if v, ok := values[envField]; ok {
		rec.Env = utils.Ptr(v)
	}
	if v, ok := values[codeField]; ok {
		rec.AuthorizationCode = utils.Ptr(v)
	}
	if v, ok := values[stateField]; ok {
		rec.State = utils.Ptr(v)
	}

	p, err := parseRecord(rec)
	if err != nil {
		err.(*ParseError).Input = raw
	}
	return p, err
}

func parseRecord(rec Record) (Payload, error) {
	if !utils.NonBlank(rec.Env) {
		return Payload{}, &ParseError{Reason: "payload 'env' property is not specified"}
	}
	return Payload{
		Env:               strings.TrimSpace(*rec.Env),
		AuthorizationCode: strings.TrimSpace(utils.Value(rec.AuthorizationCode)),
		State:             strings.TrimSpace(utils.Value(rec.State)),
	}, nil
}
