package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Token is one lexical unit produced by an external tokenizer
type Token struct {
	Line  int        `json:"line"`
	Char  int        `json:"char"`
	Type  string     `json:"type"`
	Value TokenValue `json:"value"`
}

// TokenValue holds the textual form of a token value. Tokenizers emit either
// JSON strings or bare numbers (the plaintext tokenizer turns digit runs into
// integers); numbers keep their literal JSON spelling.
type TokenValue string

func (v *TokenValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid token value: %w", err)
		}
		*v = TokenValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// booleans and anything else non-numeric are kept verbatim
		*v = TokenValue(data)
		return nil
	}
	*v = TokenValue(n.String())
	return nil
}

func (v TokenValue) String() string {
	return string(v)
}
