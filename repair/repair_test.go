package repair_test

import (
	"encoding/json"
	"testing"

	"github.com/meridianhq/steward/repair"
)

func TestParseValidInputUnchanged(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		`{"a": {"b": [1, 2, 3]}, "c": "text"}`,
		`[1, 2, 3]`,
		`"just a string"`,
		`42`,
	}
	for _, in := range inputs {
		got := repair.Parse(in, nil)
		if string(got) != in {
			t.Errorf("Parse(%q) = %q, want input unchanged", in, got)
		}
	}
}

func TestParseTrailingComma(t *testing.T) {
	got := repair.Parse(`{"a":1,}`, nil)
	want := `{"a":1}`
	if string(got) != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestParseCodeFence(t *testing.T) {
	got := repair.Parse("```json\n{\"a\":1}\n```", nil)
	want := `{"a":1}`
	if string(got) != want {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestParseSurroundingProse(t *testing.T) {
	raw := `Sure! Here is the JSON you asked for: {"risk_level": 5, "summary": "calm day"} Hope that helps.`
	var v struct {
		RiskLevel int    `json:"risk_level"`
		Summary   string `json:"summary"`
	}
	got := repair.Parse(raw, nil)
	if got == nil {
		t.Fatal("Parse returned fallback")
	}
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal repaired JSON: %v", err)
	}
	if v.RiskLevel != 5 || v.Summary != "calm day" {
		t.Errorf("parsed %+v, want risk_level=5 summary=%q", v, "calm day")
	}
}

func TestParseTruncatedString(t *testing.T) {
	got := repair.Parse(`{"a": "hello`, nil)
	var v map[string]string
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal %q: %v", got, err)
	}
	if v["a"] != "hello" {
		t.Errorf("a = %q, want %q", v["a"], "hello")
	}
}

func TestParseTruncatedKey(t *testing.T) {
	got := repair.Parse(`{"a": 1, "partial`, nil)
	var v map[string]int
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal %q: %v", got, err)
	}
	if v["a"] != 1 {
		t.Errorf("a = %d, want 1", v["a"])
	}
	if _, ok := v["partial"]; ok {
		t.Error("partial key should have been dropped")
	}
}

func TestParseTruncatedLiteral(t *testing.T) {
	got := repair.Parse(`{"a": 1, "b": tru`, nil)
	var v map[string]any
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal %q: %v", got, err)
	}
	if v["a"] != float64(1) {
		t.Errorf("a = %v, want 1", v["a"])
	}
	if _, ok := v["b"]; ok {
		t.Error("b with truncated literal should have been dropped")
	}
}

func TestParseUnclosedNesting(t *testing.T) {
	got := repair.Parse(`{"schedule": [{"time": "07:00", "activity": "walk"}, {"time": "09:00"`, nil)
	var v struct {
		Schedule []map[string]string `json:"schedule"`
	}
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal %q: %v", got, err)
	}
	if len(v.Schedule) == 0 {
		t.Fatal("expected at least the first complete activity")
	}
	if v.Schedule[0]["time"] != "07:00" {
		t.Errorf("first activity time = %q, want 07:00", v.Schedule[0]["time"])
	}
}

func TestParseStrayProseInsideObject(t *testing.T) {
	got := repair.Parse(`{"a": 1 and some thoughts, "b": 2}`, nil)
	var v map[string]any
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal %q: %v", got, err)
	}
	if v["a"] != float64(1) {
		t.Errorf("a = %v, want 1", v["a"])
	}
}

func TestParseFallback(t *testing.T) {
	fallback := json.RawMessage(`{"default": true}`)

	for _, in := range []string{"", "complete nonsense with no json at all"} {
		got := repair.Parse(in, fallback)
		if string(got) != string(fallback) {
			t.Errorf("Parse(%q) = %q, want fallback", in, got)
		}
	}
}

func TestDecode(t *testing.T) {
	type analysis struct {
		Summary   string `json:"summary"`
		RiskLevel int    `json:"risk_level"`
	}

	got := repair.Decode("```json\n{\"summary\": \"ok\", \"risk_level\": 3}\n```", analysis{})
	if got.Summary != "ok" || got.RiskLevel != 3 {
		t.Errorf("Decode = %+v", got)
	}

	fb := analysis{Summary: "fallback"}
	got = repair.Decode("no json here", fb)
	if got != fb {
		t.Errorf("Decode on garbage = %+v, want fallback", got)
	}
}
