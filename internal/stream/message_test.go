package stream

import (
	"testing"

	"github.com/RishiKendai/lichen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunRequest(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		req, err := ParseRunRequest(&StreamMessage{
			ID: "1700000000000-0",
			Fields: map[string]string{
				"run_id":          "run-1",
				"base_path":       " f24/csci1100/hw1 ",
				"gradeable":       "hw1",
				"mode":            "RANK",
				"language":        "python",
				"sequence_length": "14",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.RunRequest{
			RunID:          "run-1",
			BasePath:       "f24/csci1100/hw1",
			Gradeable:      "hw1",
			Mode:           models.ModeRank,
			Language:       "python",
			SequenceLength: 14,
		}, req)
	})

	t.Run("defaults", func(t *testing.T) {
		req, err := ParseRunRequest(&StreamMessage{
			ID:     "1700000000000-1",
			Fields: map[string]string{"base_path": "hw2"},
		})
		require.NoError(t, err)
		assert.Equal(t, "1700000000000-1", req.RunID)
		assert.Equal(t, models.ModeAll, req.Mode)
		assert.Zero(t, req.SequenceLength)
	})

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"missing base path", map[string]string{"mode": "all"}},
		{"unknown mode", map[string]string{"base_path": "hw1", "mode": "compare"}},
		{"non numeric length", map[string]string{"base_path": "hw1", "sequence_length": "ten"}},
		{"zero length", map[string]string{"base_path": "hw1", "sequence_length": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRunRequest(&StreamMessage{ID: "x", Fields: tt.fields})
			assert.Error(t, err)
		})
	}
}
