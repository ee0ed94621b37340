package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFingerprintWidth is the number of hex characters of the MD5 digest
	// kept per window (8 hex chars = 32 bits).
	DefaultFingerprintWidth = 8
	// MaxFingerprintWidth is the full MD5 hex digest length
	MaxFingerprintWidth = 32
	// DefaultMaxSequencesPerFile caps fingerprints per hashes.txt
	DefaultMaxSequencesPerFile = 10000
)

// TokenField names the token attribute that is hashed for a language
type TokenField string

const (
	FieldType  TokenField = "type"
	FieldValue TokenField = "value"
)

func (f TokenField) Valid() bool {
	return f == FieldType || f == FieldValue
}

// LanguageTable maps a source language to the token field it hashes
type LanguageTable map[string]TokenField

// DefaultLanguages mirrors the tokenizers shipped with the pipeline: plaintext
// compares literal words, programming languages compare token kinds so that
// renamed identifiers still match.
func DefaultLanguages() LanguageTable {
	return LanguageTable{
		"plaintext": FieldValue,
		"python":    FieldType,
		"cpp":       FieldType,
		"java":      FieldType,
		"mips":      FieldType,
	}
}

// Field returns the token field for language
func (t LanguageTable) Field(language string) (TokenField, error) {
	field, ok := t[strings.ToLower(language)]
	if !ok {
		return "", fmt.Errorf("unsupported language %q (supported: %s)", language, strings.Join(t.Names(), ", "))
	}
	return field, nil
}

// Names returns the supported languages in sorted order
func (t LanguageTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type languagesFile struct {
	Languages map[string]struct {
		TokenValue TokenField `yaml:"token_value"`
	} `yaml:"languages"`
}

// LoadLanguageTable returns the default table, extended or overridden by the
// YAML file at path when path is non-empty:
//
//	languages:
//	  plaintext:
//	    token_value: value
//	  rust:
//	    token_value: type
func LoadLanguageTable(path string) (LanguageTable, error) {
	table := DefaultLanguages()
	if path == "" {
		return table, nil
	}

	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read languages file: %w", err)
	}

	var file languagesFile
	if err := yaml.Unmarshal(bin, &file); err != nil {
		return nil, fmt.Errorf("failed to parse languages file %s: %w", path, err)
	}

	for name, entry := range file.Languages {
		if !entry.TokenValue.Valid() {
			return nil, fmt.Errorf("language %q: token_value must be %q or %q", name, FieldType, FieldValue)
		}
		table[strings.ToLower(name)] = entry.TokenValue
	}
	return table, nil
}
