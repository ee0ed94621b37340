package plagiarism

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/RishiKendai/lichen/internal/preprocess"
	"github.com/RishiKendai/lichen/internal/repository"
	"github.com/rs/zerolog/log"
)

const HashesFile = "hashes.txt"

// fieldFunc extracts the hashed attribute of one token
type fieldFunc func(models.Token) string

func fieldAccessor(field config.TokenField) (fieldFunc, error) {
	switch field {
	case config.FieldType:
		return func(t models.Token) string { return t.Type }, nil
	case config.FieldValue:
		return func(t models.Token) string { return t.Value.String() }, nil
	default:
		return nil, fmt.Errorf("unknown token field %q", field)
	}
}

// Hasher converts token streams into fingerprint sequences. It is immutable
// and safe for concurrent use.
type Hasher struct {
	sequenceLength int
	width          int
	maxSequences   int
	field          fieldFunc
}

// NewHasher resolves the field accessor once for the whole stage.
// maxSequences <= 0 disables truncation.
func NewHasher(rc config.RunConfig, width, maxSequences int) (*Hasher, error) {
	if rc.SequenceLength < 1 {
		return nil, fmt.Errorf("sequence length must be >= 1, got %d", rc.SequenceLength)
	}
	if width < 1 || width > config.MaxFingerprintWidth {
		return nil, fmt.Errorf("fingerprint width must be between 1 and %d, got %d", config.MaxFingerprintWidth, width)
	}
	field, err := fieldAccessor(rc.Field)
	if err != nil {
		return nil, err
	}
	return &Hasher{
		sequenceLength: rc.SequenceLength,
		width:          width,
		maxSequences:   maxSequences,
		field:          field,
	}, nil
}

// Fingerprints returns one fingerprint per window start in [0, N-L], in
// position order, and whether the sequence was cut at the per-file cap.
// Fewer than L tokens (including none) yields an empty sequence.
func (h *Hasher) Fingerprints(tokens []models.Token) ([]string, bool) {
	n := len(tokens) - h.sequenceLength + 1
	if n <= 0 {
		return nil, false
	}

	truncated := false
	if h.maxSequences > 0 && n > h.maxSequences {
		n = h.maxSequences
		truncated = true
	}

	values := make([]string, len(tokens))
	for i, t := range tokens {
		values[i] = h.field(t)
	}

	fingerprints := make([]string, n)
	var window strings.Builder
	for i := 0; i < n; i++ {
		window.Reset()
		for _, v := range values[i : i+h.sequenceLength] {
			window.WriteString(v)
		}
		fingerprints[i] = Fingerprint(window.String(), h.width)
	}

	return fingerprints, truncated
}

// Fingerprint hashes one window string: the first width hex characters of its MD5 digest
func Fingerprint(window string, width int) string {
	sum := md5.Sum([]byte(window))
	return hex.EncodeToString(sum[:])[:width]
}

// HashResult describes the hashes.txt written for one token file
type HashResult struct {
	Fingerprints int
	Truncated    bool
}

// HashFile fingerprints tokensPath and atomically writes hashesPath. Missing or
// null token files produce an empty hashes file.
func (h *Hasher) HashFile(tokensPath, hashesPath string) (HashResult, error) {
	tokens, err := preprocess.LoadTokens(tokensPath)
	if err != nil {
		return HashResult{}, err
	}

	fingerprints, truncated := h.Fingerprints(tokens)
	if truncated {
		log.Warn().
			Str("file", hashesPath).
			Int("limit", h.maxSequences).
			Msg("Fingerprint file truncated after exceeding max sequence limit")
	}

	data := []byte(strings.Join(fingerprints, "\n"))
	if err := repository.WriteFileAtomic(hashesPath, data, 0o644); err != nil {
		return HashResult{}, err
	}

	return HashResult{Fingerprints: len(fingerprints), Truncated: truncated}, nil
}
