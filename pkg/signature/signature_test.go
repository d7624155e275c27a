package signature

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSignature() Signature {
	return Signature{
		Name:        "Scorer",
		Instruction: "Score the thing.",
		Inputs: []Field{
			{Name: "url", Description: "The url", Type: String, Required: true},
			{Name: "note", Description: "Optional note", Type: String},
		},
		Outputs: []Field{
			{Name: "score", Description: "The score", Type: Float, Required: true, Min: Bound(0), Max: Bound(1)},
			{Name: "reasoning", Description: "Why", Type: String, Required: true, NonEmpty: true},
			{Name: "ok", Description: "Flag", Type: Bool},
			{Name: "extra", Description: "Anything", Type: Object},
		},
	}
}

func TestRender_DefaultTemplate(t *testing.T) {
	sig := testSignature()

	prompt, err := sig.Render(Values{"url": "https://example.com/e/1", "note": nil}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{
		"Score the thing.",
		"url (The url): https://example.com/e/1",
		"note (Optional note): null",
		`"score" (float, >= 0, <= 1): The score`,
		`"ok" (bool, optional, null if unknown): Flag`,
		"single JSON object",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Example 1") {
		t.Error("default prompt should have no demos")
	}
}

func TestRender_MissingRequiredInput(t *testing.T) {
	sig := testSignature()

	if _, err := sig.Render(Values{"note": "x"}, nil); err == nil {
		t.Error("Render() expected error for missing url")
	}
	if _, err := sig.Render(Values{"url": "u", "bogus": 1}, nil); err == nil {
		t.Error("Render() expected error for unknown input")
	}
}

func TestRender_WithConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scorer.yaml")
	content := `
instruction: Score strictly.
demos:
  - inputs:
      url: https://example.com/demo
    outputs:
      score: 0.25
      reasoning: demo reasoning
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	prompt, err := testSignature().Render(Values{"url": "https://example.com/real"}, cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.HasPrefix(prompt, "Score strictly.") {
		t.Errorf("instruction not replaced:\n%s", prompt)
	}
	if strings.Contains(prompt, "Score the thing.") {
		t.Error("default instruction should be replaced")
	}
	if !strings.Contains(prompt, "--- Example 1 ---") || !strings.Contains(prompt, "url: https://example.com/demo") {
		t.Errorf("demo not rendered:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"reasoning":"demo reasoning"`) {
		t.Errorf("demo response not rendered:\n%s", prompt)
	}
}

func TestRender_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	content := `{"template": "{{.Instruction}}|{{range .Inputs}}{{.Name}}={{.Value}};{{end}}"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	prompt, err := testSignature().Render(Values{"url": "u1", "note": "n1"}, cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if prompt != "Score the thing.|url=u1;note=n1;" {
		t.Errorf("Render() = %q", prompt)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("template: \"{{.Broken\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() expected error for broken template")
	}
}

func TestLoadConfig_Demos(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuned.yaml")
	doc := `instruction: Tuned.
demos:
  - inputs:
      url: a
    outputs:
      score: 1.0
      reasoning: r
`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Instruction != "Tuned." || len(loaded.Demos) != 1 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.Demos[0].Inputs["url"] != "a" || loaded.Demos[0].Outputs["reasoning"] != "r" {
		t.Errorf("demo = %+v", loaded.Demos[0])
	}
}

func TestParse_Valid(t *testing.T) {
	sig := testSignature()

	tests := []struct {
		name string
		raw  string
	}{
		{"plain", `{"score": 0.8, "reasoning": "close", "ok": true, "extra": {"a": 1}}`},
		{"fenced", "```json\n{\"score\": 0.8, \"reasoning\": \"close\", \"ok\": true, \"extra\": {\"a\": 1}}\n```"},
		{"prose", `Here you go: {"score": "0.8", "reasoning": "close", "ok": "true", "extra": {"a": 1}} hope it helps`},
		{"trailing braces", `{"score": 0.8, "reasoning": "close", "ok": true, "extra": {"a": 1}} Note: fields like {title} were left as-is.`},
		{"leading braces", `Template {name} filled: {"score": 0.8, "reasoning": "close", "ok": true, "extra": {"a": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := sig.Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if out.Float("score") != 0.8 {
				t.Errorf("score = %v, want 0.8", out["score"])
			}
			if out.String("reasoning") != "close" {
				t.Errorf("reasoning = %v", out["reasoning"])
			}
			if !out.Bool("ok") {
				t.Errorf("ok = %v, want true", out["ok"])
			}
			if _, isMap := out["extra"].(map[string]any); !isMap {
				t.Errorf("extra = %T, want object", out["extra"])
			}
		})
	}
}

func TestParse_OptionalAbsent(t *testing.T) {
	out, err := testSignature().Parse(`{"score": 1, "reasoning": "exact", "ok": null}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v, present := out["ok"]; !present || v != nil {
		t.Errorf("ok = %v (present %v), want nil", v, present)
	}
	if out.OptString("extra") != nil {
		t.Error("OptString() should be nil for absent value")
	}
}

func TestParse_Violations(t *testing.T) {
	sig := testSignature()

	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"empty", "", ""},
		{"no json", "I cannot help with that", ""},
		{"bad json", `{"score": 0.5,`, ""},
		{"missing score", `{"reasoning": "r"}`, "score"},
		{"null score", `{"score": null, "reasoning": "r"}`, "score"},
		{"score above range", `{"score": 1.5, "reasoning": "r"}`, "score"},
		{"score below range", `{"score": -0.1, "reasoning": "r"}`, "score"},
		{"score not a number", `{"score": "high", "reasoning": "r"}`, "score"},
		{"score NaN string", `{"score": "NaN", "reasoning": "r"}`, "score"},
		{"empty reasoning", `{"score": 0.5, "reasoning": "  "}`, "reasoning"},
		{"reasoning wrong type", `{"score": 0.5, "reasoning": 3}`, "reasoning"},
		{"bool wrong type", `{"score": 0.5, "reasoning": "r", "ok": 1}`, "ok"},
		{"object wrong type", `{"score": 0.5, "reasoning": "r", "extra": [1]}`, "extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sig.Parse(tt.raw)
			var violation *SchemaViolation
			if !errors.As(err, &violation) {
				t.Fatalf("Parse() error = %v, want *SchemaViolation", err)
			}
			if violation.Field != tt.field {
				t.Errorf("violation field = %q, want %q", violation.Field, tt.field)
			}
			if violation.Signature != "Scorer" {
				t.Errorf("violation signature = %q", violation.Signature)
			}
		})
	}
}
