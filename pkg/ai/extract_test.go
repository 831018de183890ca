package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "strict json",
			raw:  `{"is_resume": true, "title": "Go Developer"}`,
			want: map[string]any{"is_resume": true, "title": "Go Developer"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"is_resume\": false, \"title\": null}\n```",
			want: map[string]any{"is_resume": false, "title": nil},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"is_vacancy\": true, \"title\": \"SRE\"}\n```",
			want: map[string]any{"is_vacancy": true, "title": "SRE"},
		},
		{
			name: "json wrapped in prose",
			raw:  "Sure! Here is the verdict: {\"is_resume\": true, \"title\": \"DevOps\"} Hope that helps.",
			want: map[string]any{"is_resume": true, "title": "DevOps"},
		},
		{
			name: "nested object in prose",
			raw:  `verdict {"a": {"b": 1}, "ok": true} trailing`,
			want: map[string]any{"a": map[string]any{"b": float64(1)}, "ok": true},
		},
		{
			name: "braces inside strings",
			raw:  `{"title": "uses { weird } punctuation", "is_resume": true}`,
			want: map[string]any{"title": "uses { weird } punctuation", "is_resume": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONEmptyResponse(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := ExtractJSON(raw)
		require.Error(t, err)
		assert.Equal(t, ErrorTypeEmpty, TypeOf(err))
	}
}

func TestExtractJSONMalformed(t *testing.T) {
	tests := []string{
		"just prose with no object",
		"{unbalanced",
		"{'single': 'quotes'}",
		"[1, 2, 3]",
	}
	for _, raw := range tests {
		_, err := ExtractJSON(raw)
		require.Error(t, err, raw)
		assert.Equal(t, ErrorTypeMalformed, TypeOf(err), raw)
	}
}
