package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	r := NewRenderer()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "# Title", "<h1"},
		{"bold", "**x**", "<strong>x</strong>"},
		{"task list", "- [x] done", `type="checkbox"`},
		{"strikethrough", "~~gone~~", "<del>gone</del>"},
		{"autolink", "see https://example.com now", `<a href="https://example.com"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(got, tt.want) {
				t.Fatalf("Render(%q) = %q, want contains %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderEscapesRawHTML(t *testing.T) {
	r := NewRenderer()
	got, err := r.Render(`<script>alert(1)</script>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "<script>") {
		t.Fatalf("raw HTML not suppressed: %q", got)
	}
}
