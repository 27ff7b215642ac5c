package main

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/tessellate"
)

const columnScript = `
; one column, cut in half
(def col (element "col-1" (box 1 1 1)))
(split-plane col :axis :z :at 50)
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(config.Default(), nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { app.shutdown(context.Background()) })
	return app
}

func meshNames(meshes []tessellate.RenderMesh) []string {
	names := make([]string, len(meshes))
	for i, m := range meshes {
		names[i] = m.PartName
	}
	return names
}

// TestE2EPlaneSplitScript exercises the full pipeline: script → engine →
// scene → tessellate → meshes. This is the same path that the Wails
// Evaluate binding takes, but without the Wails runtime.
func TestE2EPlaneSplitScript(t *testing.T) {
	app := newTestApp(t)

	result := app.Evaluate(columnScript)
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d: %v", len(result.Meshes), meshNames(result.Meshes))
	}
	want := []string{"col-1/bottom#2", "col-1/top#3"}
	for i, m := range result.Meshes {
		if m.PartName != want[i] {
			t.Errorf("mesh %d: part name %q, want %q", i, m.PartName, want[i])
		}
		if len(m.Vertices) == 0 || len(m.Indices) == 0 {
			t.Errorf("mesh %q has empty geometry", m.PartName)
		}
		if len(m.Vertices) != len(m.Normals) {
			t.Errorf("mesh %q: %d vertex floats but %d normal floats", m.PartName, len(m.Vertices), len(m.Normals))
		}
		if m.Ratio < 0.4999 || m.Ratio > 0.5001 {
			t.Errorf("mesh %q: ratio %f, want 0.5", m.PartName, m.Ratio)
		}
	}
}

func TestE2EColumnCutsExample(t *testing.T) {
	app := newTestApp(t)

	source, err := os.ReadFile("examples/column-cuts.kerf")
	if err != nil {
		t.Fatalf("failed to read column-cuts.kerf: %v", err)
	}
	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}

	// col-a: upper lift and two lower halves; col-b untouched; slab: near
	// bay, far bay remainder and the opening.
	if len(result.Meshes) != 7 {
		t.Fatalf("expected 7 meshes, got %d: %v", len(result.Meshes), meshNames(result.Meshes))
	}
	ratios := map[string]float64{}
	for _, m := range result.Meshes {
		ratios[m.PartName] = m.Ratio
	}
	if _, ok := ratios["col-b"]; !ok {
		t.Error("expected the uncut column col-b")
	}
	opening := 0.4 * 0.4 * 0.25 / (3.5 * 1.5 * 0.25)
	for name, want := range map[string]float64{
		"col-a/top#5":         0.5,
		"col-a/bottom#6":      0.25,
		"slab-1/bottom#8":     0.4,
		"slab-1/extracted#11": opening,
	} {
		got, ok := ratios[name]
		if !ok {
			t.Errorf("missing part %q in %v", name, meshNames(result.Meshes))
			continue
		}
		if math.Abs(got-want) > 1e-3 {
			t.Errorf("%s: ratio %f, want %f", name, got, want)
		}
	}
}

func TestE2EScriptSplitsArePersisted(t *testing.T) {
	app := newTestApp(t)

	if r := app.Evaluate(columnScript); len(r.Errors) > 0 {
		t.Fatalf("eval errors: %v", r.Errors)
	}
	if err := app.persist.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	saved, err := app.store.ListBySource(context.Background(), "col-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved splits, got %d", len(saved))
	}
	for _, e := range app.Elements("col-1") {
		if e.ID == "" {
			t.Errorf("scene element %s was not patched with its saved id", e.PartType)
		}
	}
}

func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)

	result := app.Evaluate("")
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(result.Errors))
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(result.Meshes))
	}
}

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp(t)

	result := app.Evaluate(";; nothing to split yet\n; still nothing\n")
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(result.Meshes))
	}
}

func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)

	result := app.Evaluate(`(element "col-1" (box 1 1 1)`)
	if len(result.Errors) == 0 {
		t.Fatal("expected errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected no meshes on error, got %d", len(result.Meshes))
	}
	if result.Errors[0].Message == "" {
		t.Error("expected non-empty error message")
	}
}

func TestE2EFailedSplitKeepsPreviousScene(t *testing.T) {
	app := newTestApp(t)

	if r := app.Evaluate(columnScript); len(r.Errors) > 0 {
		t.Fatalf("eval errors: %v", r.Errors)
	}
	result := app.Evaluate(`(split-plane (element "col-1" (box 1 1 1)) :axis :x :at 150)`)
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0].Message, "no_intersection") {
		t.Fatalf("expected no_intersection error, got %v", result.Errors)
	}
	if got := len(app.Elements("col-1")); got != 2 {
		t.Errorf("previous scene should still have 2 splits, got %d", got)
	}
}

func TestE2ERapidEvaluation(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 10; i++ {
		result := app.Evaluate(columnScript)
		if len(result.Errors) > 0 {
			t.Fatalf("iteration %d: unexpected errors: %v", i, result.Errors)
		}
		if len(result.Meshes) != 2 {
			t.Fatalf("iteration %d: expected 2 meshes, got %d", i, len(result.Meshes))
		}
	}
}

func TestE2EDeleteSplits(t *testing.T) {
	app := newTestApp(t)

	if r := app.Evaluate(columnScript); len(r.Errors) > 0 {
		t.Fatalf("eval errors: %v", r.Errors)
	}
	result := app.DeleteSplits("col-1")
	if len(result.Errors) > 0 {
		t.Fatalf("delete errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 || result.Meshes[0].PartName != "col-1" {
		t.Fatalf("expected the original column back, got %v", meshNames(result.Meshes))
	}
	saved, err := app.store.ListBySource(context.Background(), "col-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("expected no saved splits, got %d", len(saved))
	}
}

func TestE2ENoSceneYet(t *testing.T) {
	app := newTestApp(t)

	result := app.SetHidden(1, true)
	if len(result.Errors) == 0 {
		t.Fatal("expected an error before any evaluation")
	}
	if got := app.Elements("col-1"); len(got) != 0 {
		t.Errorf("expected no elements, got %d", len(got))
	}
}
