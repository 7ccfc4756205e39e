package agent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSpecialistReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{
			name: "bare object",
			text: `{"seo_score": 88, "meta_title": "Launch day"}`,
			want: map[string]any{"seo_score": float64(88), "meta_title": "Launch day"},
		},
		{
			name: "json fence",
			text: "```json\n{\"blog_post\": \"# Launch\\n\\n- fast\"}\n```",
			want: map[string]any{"blog_post": "# Launch\n\n- fast"},
		},
		{
			name: "plain fence with trailing note",
			text: "```\n{\"color_palette\": [\"#112233\"]}\n```\nLet me know if you need more.",
			want: map[string]any{"color_palette": []any{"#112233"}},
		},
		{
			name: "prose around object",
			text: "Here is the analysis:\n{\"primary_keywords\": [\"automation\"]}\nHope this helps.",
			want: map[string]any{"primary_keywords": []any{"automation"}},
		},
		{
			name: "nested objects kept",
			text: `{"email_content": {"subject_line": "Hi", "body": "**Now**"}}`,
			want: map[string]any{"email_content": map[string]any{"subject_line": "Hi", "body": "**Now**"}},
		},
		{name: "truncated reply", text: `{"blog_post": "# Launch`},
		{name: "cut off mid object", text: "```json\n{\"blog_post\": \"x\", \"key_messages\": [\"a\"\n"},
		{name: "array", text: `["not", "an", "object"]`},
		{name: "prose only", text: "I cannot help with that."},
		{name: "empty", text: ""},
		{name: "fence only", text: "```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSpecialistReply(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
