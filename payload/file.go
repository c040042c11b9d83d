package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// fileRecord accepts the short "code" spelling used by the webhook alongside
// the documented "authorization_code".
type fileRecord struct {
	Record
	Code *string `json:"code"`
}

// Decode turns the contents of a payload file into an Input. A JSON object
// becomes a Record, a JSON string and anything else a RawString.
func Decode(data []byte) (Input, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return RawString(""), nil
	}

	switch trimmed[0] {
	case '{':
		var rec fileRecord
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, &ParseError{Reason: "cannot decode payload object: " + err.Error()}
		}
		if rec.AuthorizationCode == nil {
			rec.AuthorizationCode = rec.Code
		}
		return rec.Record, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, &ParseError{Reason: "cannot decode payload string: " + err.Error()}
		}
		return RawString(s), nil
	}
	return RawString(trimmed), nil
}

// LoadFile reads and parses the payload file handed to the worker.
func LoadFile(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read payload file: %w", err)
	}
	in, err := Decode(data)
	if err != nil {
		return Payload{}, err
	}
	return Parse(in)
}
