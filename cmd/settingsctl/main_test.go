package main

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/state"
)

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run %v: %v\nstderr: %s", args, err, stderr.String())
	}
	var out map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output %q: %v", stdout.String(), err)
	}
	return out
}

func TestValuesAppliesEdits(t *testing.T) {
	out := runJSON(t, "values", "--schema", "testdata/schema.jsonc", "--set", "general.fps=500", "--set", "deadline.pools.primary=gpu")
	want := map[string]any{
		"general":  map[string]any{"fps": 120.0, "studio_name": "studio"},
		"deadline": map[string]any{"pools": map[string]any{"primary": "gpu"}, "priority": 50.0},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
}

func TestOverridesCollectsEditedGroups(t *testing.T) {
	out := runJSON(t, "overrides",
		"--schema", "testdata/schema.jsonc",
		"--overrides", "testdata/shot.yaml",
		"--set", "deadline.pools.primary=gpu",
	)
	want := map[string]any{
		"__groups__": []any{"general"},
		"general":    map[string]any{"fps": 30.0, "studio_name": "studio"},
		"deadline": map[string]any{
			"__groups__": []any{"pools"},
			"pools":      map[string]any{"primary": "gpu"},
		},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
}

func TestOverridesRequiresProjectSession(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"overrides", "--schema", "testdata/schema.jsonc"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "--project") {
		t.Fatalf("expected project session error, got %v", err)
	}
}

func TestTraceReportsGroup(t *testing.T) {
	out := runJSON(t, "trace", "--schema", "testdata/schema.jsonc", "--overrides", "testdata/shot.yaml", "general.fps")
	if out["group"] != "general" || out["overridden"] != true {
		t.Fatalf("unexpected trace %v", out)
	}
}

func TestOpenAPIWritesYAML(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"openapi", "--schema", "testdata/schema.jsonc", "--format", "yaml", "--group-components"}, &stdout, &stderr); err != nil {
		t.Fatalf("openapi: %v", err)
	}
	if !strings.Contains(stdout.String(), "#/components/schemas/Deadline_Pools") {
		t.Fatalf("expected pools component reference, got:\n%s", stdout.String())
	}
}

func TestEffectiveLayersStoredDocuments(t *testing.T) {
	dir := t.TempDir()
	store := state.NewFileStore(dir)
	ctx := context.Background()
	if _, err := store.Save(ctx, state.Ref{Domain: "render"}, settings.Document{
		"general": map[string]any{"fps": 25},
	}, state.Meta{}); err != nil {
		t.Fatalf("save studio: %v", err)
	}
	if _, err := store.Save(ctx, state.Ref{Domain: "render", Project: "shot-010"}, settings.Document{
		"__groups__": []any{"general"},
		"general":    map[string]any{"fps": 48},
	}, state.Meta{}); err != nil {
		t.Fatalf("save project: %v", err)
	}

	out := runJSON(t, "effective", "--schema", "testdata/schema.jsonc", "--store", dir, "--domain", "render", "--project-id", "shot-010")
	want := map[string]any{
		"general":  map[string]any{"fps": 48.0, "studio_name": "studio"},
		"deadline": map[string]any{"pools": map[string]any{"primary": "none"}, "priority": 50.0},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
}

func TestRunRejectsBadInvocations(t *testing.T) {
	cases := [][]string{
		nil,
		{"frobnicate"},
		{"values"},
		{"values", "--schema", "testdata/schema.jsonc", "--format", "toml"},
		{"values", "--schema", "testdata/schema.jsonc", "--engine", "lua"},
		{"values", "--schema", "testdata/schema.jsonc", "--set", "general.missing=1"},
		{"effective", "--schema", "testdata/schema.jsonc"},
	}
	for _, args := range cases {
		var stdout, stderr bytes.Buffer
		if err := run(args, &stdout, &stderr); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	assignments, err := parseAssignments([]string{
		"general.fps=24",
		"general.extensions=[exr, png]",
		"general.studio_name=",
		"env={OCIO: /config.ocio}",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []any{
		24,
		[]any{"exr", "png"},
		"",
		map[string]any{"OCIO": "/config.ocio"},
	}
	for i, assignment := range assignments {
		if !reflect.DeepEqual(assignment.value, want[i]) {
			t.Fatalf("assignment %d: expected %#v, got %#v", i, want[i], assignment.value)
		}
	}
	if assignments[0].path.String() != "general.fps" {
		t.Fatalf("unexpected path %q", assignments[0].path)
	}
	if _, err := parseAssignments([]string{"general.fps"}); err == nil {
		t.Fatalf("expected missing value separator to fail")
	}
}
