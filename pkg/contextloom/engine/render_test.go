package engine

import (
	"strings"
	"testing"

	"github.com/davenloft/contextloom/pkg/contextloom/workspace"
)

func TestRenderEmptyBundle(t *testing.T) {
	t.Parallel()

	got := Render(&LoadedContext{})
	want := OpenMarker + "\n\n" + CloseMarker + "\n"
	if got != want {
		t.Errorf("empty render = %q, want %q", got, want)
	}
}

func TestRenderGuidanceComesFirst(t *testing.T) {
	t.Parallel()

	lc := &LoadedContext{
		Guidance: guidanceText("042-billing"),
		Sources: []ContextSource{
			{Type: workspace.SourceCharter, Content: "# Charter\n\nText."},
		},
	}
	out := Render(lc)

	guidanceAt := strings.Index(out, "> Context is near its size budget")
	headingAt := strings.Index(out, "## Project Charter")
	if guidanceAt < 0 || headingAt < 0 {
		t.Fatalf("render missing guidance or heading:\n%s", out)
	}
	if guidanceAt > headingAt {
		t.Error("guidance rendered after the first source section")
	}
	if !strings.Contains(out, "042-billing") {
		t.Error("guidance lost the active unit name")
	}
}

func TestRenderHeadings(t *testing.T) {
	t.Parallel()

	lc := &LoadedContext{
		ActiveUnit: "042-billing",
		Sources: []ContextSource{
			{Type: workspace.SourceCharter, Content: "charter text"},
			{Type: workspace.SourceCurrentSpec, Identifier: ".contextloom/specs/042-billing/spec.md", Content: "spec text"},
			{Type: workspace.SourceRelatedSpecs, Identifier: ".contextloom/specs/040-payments/spec.md", Content: "related text"},
		},
	}
	out := Render(lc)

	for _, want := range []string{
		"## Project Charter",
		"## Current Spec (042-billing)",
		"## Related Spec: .contextloom/specs/040-payments/spec.md",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing heading %q:\n%s", want, out)
		}
	}
	if !strings.HasPrefix(out, OpenMarker+"\n") {
		t.Error("render does not start with the opening marker")
	}
	if !strings.HasSuffix(out, CloseMarker+"\n") {
		t.Error("render does not end with the closing marker")
	}
}
