package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RishiKendai/lichen/internal/models"
)

// StreamMessage is a stream entry with its string fields
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseRunRequest builds a run request from a stream entry. base_path is
// required; mode defaults to "all" and run_id to the entry ID.
func ParseRunRequest(msg *StreamMessage) (models.RunRequest, error) {
	req := models.RunRequest{
		RunID:     strings.TrimSpace(msg.Fields["run_id"]),
		BasePath:  strings.TrimSpace(msg.Fields["base_path"]),
		Gradeable: strings.TrimSpace(msg.Fields["gradeable"]),
		Mode:      strings.ToLower(strings.TrimSpace(msg.Fields["mode"])),
		Language:  strings.TrimSpace(msg.Fields["language"]),
	}

	if req.BasePath == "" {
		return models.RunRequest{}, fmt.Errorf("message %s: missing base_path", msg.ID)
	}
	if req.RunID == "" {
		req.RunID = msg.ID
	}

	switch req.Mode {
	case "":
		req.Mode = models.ModeAll
	case models.ModeHash, models.ModeRank, models.ModeAll:
	default:
		return models.RunRequest{}, fmt.Errorf("message %s: unknown mode %q", msg.ID, req.Mode)
	}

	if raw := strings.TrimSpace(msg.Fields["sequence_length"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return models.RunRequest{}, fmt.Errorf("message %s: invalid sequence_length %q", msg.ID, raw)
		}
		req.SequenceLength = n
	}

	return req, nil
}
