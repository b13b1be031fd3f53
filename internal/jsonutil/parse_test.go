package jsonutil

import "testing"

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fences", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"leading whitespace", "  \n```json\n{}\n```", `{}`},
		{"fence without close", "```json\n{\"a\": 1}", "```json\n{\"a\": 1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON(`Here is the report: [{"part": "Капот"}] hope it helps`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[{"part": "Капот"}]` {
		t.Errorf("got %q", got)
	}

	got, err = ExtractJSON(`prose {"is_acceptable": true} trailing`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"is_acceptable": true}` {
		t.Errorf("got %q", got)
	}

	if _, err := ExtractJSON("no json here at all"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestParseJSON(t *testing.T) {
	type finding struct {
		Part string `json:"part"`
	}

	findings, err := ParseJSON[[]finding]("```json\n[{\"part\": \"Капот\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 || findings[0].Part != "Капот" {
		t.Errorf("unexpected findings: %+v", findings)
	}

	if _, err := ParseJSON[[]finding](`[{"part": broken]`); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 100); got != "short" {
		t.Errorf("got %q", got)
	}
	long := "aaaaaaaaaa"
	if got := Preview(long, 4); got != "aaaa..." {
		t.Errorf("got %q", got)
	}
}
