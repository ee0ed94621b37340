package preprocess

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/RishiKendai/lichen/internal/models"
	"golang.org/x/text/encoding/charmap"
)

const TokensFile = "tokens.json"

// LoadTokens reads a tokenizer output file. A missing file, an empty file and
// a literal JSON null all mean "no tokens" and return a nil slice without error
// (provided code is frequently absent).
//
// Files are decoded as ISO-8859-1 before JSON parsing, the same way the
// tokenizers' consumers always read them, so fingerprints stay comparable with
// hashes produced by earlier runs even for non-ASCII submissions.
func LoadTokens(path string) ([]models.Token, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens %s: %w", path, err)
	}
	return DecodeTokens(raw)
}

// DecodeTokens parses the raw bytes of a tokens.json file
func DecodeTokens(raw []byte) ([]models.Token, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}

	var tokens []models.Token
	if err := json.Unmarshal(decoded, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse tokens: %w", err)
	}
	return tokens, nil
}
