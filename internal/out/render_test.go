package out

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type sample struct {
	Name   string            `json:"name"`
	Score  int               `json:"score"`
	Labels map[string]string `json:"labels,omitempty"`
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	data := []sample{{Name: "x", Score: 42}, {Name: "y", Score: 1, Labels: map[string]string{"k": "v"}}}
	if err := Render(&buf, data, ModePlain); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "name=x score=42" {
		t.Fatalf("unexpected plain output: %q", buf.String())
	}
	if !strings.Contains(lines[1], `labels={"k":"v"}`) {
		t.Fatalf("nested values should be compact json: %q", lines[1])
	}
}

func TestRenderPlainEmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, []sample{}, ModePlain); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample{Name: "pool", Score: 7}, ModeYAML); err != nil {
		t.Fatalf("render: %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if decoded["name"] != "pool" || decoded["score"] != 7 {
		t.Fatalf("unexpected yaml: %s", buf.String())
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample{Name: "a"}, ModeJSON); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "a"`) {
		t.Fatalf("unexpected json: %s", buf.String())
	}
}

func TestCheckMode(t *testing.T) {
	if err := CheckMode("xml"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if err := CheckMode(ModeYAML); err != nil {
		t.Fatalf("yaml should be valid: %v", err)
	}
}
