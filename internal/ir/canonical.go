package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a value for hashing.
//
// Differences from json.Marshal:
//  1. No HTML escaping (< > & are NOT escaped)
//  2. Output is NFC normalized
//  3. No trailing newline
//
// Struct fields keep declaration order and map keys are sorted by
// encoding/json, so the same Program always yields the same bytes.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return norm.NFC.Bytes(out), nil
}
