package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const RunConfigFile = "config.json"

// RunConfig is the per-gradeable configuration stored at <base>/config.json.
// It is immutable once loaded and passed by value into both stages.
type RunConfig struct {
	Language       string     `json:"language"`
	SequenceLength int        `json:"sequence_length"`
	Gradeable      string     `json:"gradeable,omitempty"`
	Field          TokenField `json:"-"`
}

type runConfigFile struct {
	Language       string `json:"language"`
	SequenceLength *int   `json:"sequence_length"`
	HashSize       *int   `json:"hash_size"`
	Gradeable      string `json:"gradeable"`
}

// LoadRunConfig reads <base>/config.json and resolves the token field for its
// language. The legacy "hash_size" key is accepted when "sequence_length" is absent.
func LoadRunConfig(basePath string, languages LanguageTable) (RunConfig, error) {
	path := filepath.Join(basePath, RunConfigFile)
	bin, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to read run config %s: %w", path, err)
	}

	var raw runConfigFile
	if err := json.Unmarshal(bin, &raw); err != nil {
		return RunConfig{}, fmt.Errorf("failed to parse run config %s: %w", path, err)
	}

	rc := RunConfig{
		Language:  raw.Language,
		Gradeable: raw.Gradeable,
	}
	switch {
	case raw.SequenceLength != nil:
		rc.SequenceLength = *raw.SequenceLength
	case raw.HashSize != nil:
		rc.SequenceLength = *raw.HashSize
	}

	return rc.Resolve(languages)
}

// Resolve validates the config and fills in Field from the language table
func (rc RunConfig) Resolve(languages LanguageTable) (RunConfig, error) {
	if rc.SequenceLength < 1 {
		return RunConfig{}, fmt.Errorf("sequence length must be >= 1, got %d", rc.SequenceLength)
	}
	field, err := languages.Field(rc.Language)
	if err != nil {
		return RunConfig{}, err
	}
	rc.Language = strings.ToLower(rc.Language)
	rc.Field = field
	return rc, nil
}

// WithOverrides returns a copy with the non-zero values applied
func (rc RunConfig) WithOverrides(language string, sequenceLength int) RunConfig {
	if language != "" {
		rc.Language = language
	}
	if sequenceLength > 0 {
		rc.SequenceLength = sequenceLength
	}
	return rc
}

var ErrPathEscape = errors.New("path escapes the data directory")

// ResolveBasePath joins a requested base path onto dataDir and rejects any
// path containing ".." segments. Absolute paths are accepted only when they
// already live under dataDir (or when dataDir is empty).
func ResolveBasePath(dataDir, requested string) (string, error) {
	if requested == "" {
		return "", fmt.Errorf("base path is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(requested), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %s", ErrPathEscape, requested)
		}
	}

	if dataDir == "" {
		return filepath.Clean(requested), nil
	}

	root := filepath.Clean(dataDir)
	var full string
	if filepath.IsAbs(requested) {
		full = filepath.Clean(requested)
	} else {
		full = filepath.Join(root, requested)
	}

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, requested)
	}
	return full, nil
}
