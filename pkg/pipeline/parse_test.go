package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "bare array",
			input: `["归因模型","MMM","MTA"]`,
			want:  []string{"归因模型", "MMM", "MTA"},
		},
		{
			name:  "object with keywords field",
			input: `{"keywords": ["医疗AI", "辅助诊断"]}`,
			want:  []string{"医疗AI", "辅助诊断"},
		},
		{
			name:  "fenced json block",
			input: "```json\n[\"a\",\"b\"]\n```",
			want:  []string{"a", "b"},
		},
		{
			name:  "plain fence without language tag",
			input: "```\n[\"a\"]\n```",
			want:  []string{"a"},
		},
		{
			name:  "blank entries filtered",
			input: `["a", "", "  ", "b"]`,
			want:  []string{"a", "b"},
		},
		{
			name:    "prose is rejected",
			input:   "Here are some keywords: attribution, MMM",
			wantErr: true,
		},
		{
			name:    "object without keywords field",
			input:   `{"terms": ["a"]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeywords(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRelevance(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		got, err := parseRelevance(`{"relevance_score": 0.85, "insight": "该文章系统梳理了归因模型。"}`)
		require.NoError(t, err)
		assert.InDelta(t, 0.85, got.RelevanceScore, 1e-9)
		assert.Equal(t, "该文章系统梳理了归因模型。", got.Insight)
	})

	t.Run("fenced", func(t *testing.T) {
		got, err := parseRelevance("```json\n{\"relevance_score\": 0.2, \"insight\": \"x\"}\n```")
		require.NoError(t, err)
		assert.InDelta(t, 0.2, got.RelevanceScore, 1e-9)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseRelevance("I think it is quite relevant")
		assert.Error(t, err)
	})
}
