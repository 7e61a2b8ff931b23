package engine

import (
	"reflect"
	"strings"
	"testing"

	"github.com/davenloft/contextloom/pkg/contextloom/tokens"
	"github.com/davenloft/contextloom/pkg/contextloom/workspace"
)

// filler returns plain text estimating to exactly n heuristic tokens
// (4 chars per token).
func filler(n int) string {
	return strings.Repeat("word ", (n*4)/5)
}

var fullWorkspace = map[string]string{
	".git/HEAD": "ref: refs/heads/042-billing\n",
	".contextloom/product/charter.md": "# Charter\n\n" +
		"Build dependable billing infrastructure for small teams.\n",
	".contextloom/product/tech-stack.md": "# Tech Stack\n\n- Go\n- Postgres\n",
	".contextloom/product/roadmap.md": `## P0
- [ ] Ship invoice generation [042-billing]
  Rationale: revenue blocks on this
- [ ] Harden auth flows

## P2
- [ ] Dark mode for the dashboard
- [x] Legacy exporter cleanup
`,
	".contextloom/product/completed.md": "- [x] Initial scaffolding (2026-01-10)\n",
	".contextloom/specs/042-billing/spec.md": "# Billing Invoices\n\n" +
		"Generate invoices for billing customers. Handle payment reconciliation " +
		"and dunning webhooks for subscriptions.\n",
	".contextloom/specs/040-payments/spec.md": "# Payment Reconciliation\n\n" +
		"Handle payment reconciliation for billing customers. Generate invoices " +
		"and dunning webhooks for subscriptions.\n",
	".contextloom/specs/001-auth/spec.md": "# Login\n\n" +
		"Users authenticate with passwords and sessions issued through oauth tokens.\n",
	".contextloom/config.yml": "similarity:\n  strategy: keyword\n  threshold: 0.05\n",
}

func TestAssembleEmptyWorkspace(t *testing.T) {
	t.Parallel()

	a := NewAssembler(t.TempDir(), DefaultConfig(), tokens.Heuristic(), discardLogger())
	lc := a.Assemble("")

	if len(lc.Sources) != 0 {
		t.Errorf("empty workspace produced %d sources", len(lc.Sources))
	}
	if lc.TotalTokens != 0 || lc.AnyTruncated || lc.Guidance != "" || lc.ActiveUnit != "" {
		t.Errorf("empty workspace produced non-zero bundle: %+v", lc)
	}
}

func TestAssembleFullWorkspace(t *testing.T) {
	t.Parallel()

	root := writeProject(t, fullWorkspace)
	cfg := LoadOrDefault(root, discardLogger())
	a := NewAssembler(root, cfg, tokens.Heuristic(), discardLogger())
	lc := a.Assemble("")

	if lc.ActiveUnit != "042-billing" {
		t.Fatalf("ActiveUnit = %q, want 042-billing", lc.ActiveUnit)
	}

	var gotTypes []workspace.SourceType
	sum := 0
	for _, src := range lc.Sources {
		gotTypes = append(gotTypes, src.Type)
		sum += src.TokenCount
		if src.TokenCount > cfg.Budget.PerSourceTokens {
			t.Errorf("source %q exceeds per-source cap: %d", src.Type, src.TokenCount)
		}
	}
	if sum != lc.TotalTokens {
		t.Errorf("TotalTokens = %d, sum of sources = %d", lc.TotalTokens, sum)
	}
	if lc.TotalTokens > cfg.Budget.TotalTokens {
		t.Errorf("TotalTokens %d over global cap", lc.TotalTokens)
	}

	// Default priorities: charter, current spec, roadmap, tech stack,
	// related specs, completed.
	wantTypes := []workspace.SourceType{
		workspace.SourceCharter,
		workspace.SourceCurrentSpec,
		workspace.SourceRoadmap,
		workspace.SourceTechStack,
		workspace.SourceRelatedSpecs,
		workspace.SourceCompleted,
	}
	if !reflect.DeepEqual(gotTypes, wantTypes) {
		t.Fatalf("source order = %v, want %v", gotTypes, wantTypes)
	}

	byType := make(map[workspace.SourceType]ContextSource)
	var related []ContextSource
	for _, src := range lc.Sources {
		if src.Type == workspace.SourceRelatedSpecs {
			related = append(related, src)
			continue
		}
		byType[src.Type] = src
	}

	rm := byType[workspace.SourceRoadmap].Content
	if !strings.Contains(rm, "### Current Feature (042-billing)") {
		t.Error("roadmap summary missing current-feature block")
	}
	if !strings.Contains(rm, "Ship invoice generation") || !strings.Contains(rm, "Rationale: revenue blocks on this") {
		t.Error("roadmap summary missing active item detail")
	}
	if strings.Contains(rm, "Legacy exporter cleanup") {
		t.Error("completed roadmap item leaked into summary")
	}
	if !strings.Contains(rm, "Dark mode for the dashboard") {
		t.Error("upcoming item missing from summary")
	}

	if got := byType[workspace.SourceCompleted].Content; !strings.Contains(got, "Initial scaffolding (2026-01-10)") {
		t.Errorf("completed log content = %q", got)
	}

	if len(related) != 1 {
		t.Fatalf("related specs = %d, want 1 (only payments passes the threshold)", len(related))
	}
	if !strings.Contains(related[0].Identifier, "040-payments") {
		t.Errorf("related identifier = %q, want the payments spec", related[0].Identifier)
	}
	for _, src := range related {
		if strings.Contains(src.Identifier, "042-billing") {
			t.Error("active spec ranked against itself")
		}
		if strings.Contains(src.Identifier, "001-auth") {
			t.Error("unrelated spec passed the similarity threshold")
		}
	}
}

func TestAssembleIdempotent(t *testing.T) {
	t.Parallel()

	root := writeProject(t, fullWorkspace)
	cfg := LoadOrDefault(root, discardLogger())
	a := NewAssembler(root, cfg, tokens.Heuristic(), discardLogger())

	first := a.Assemble("")
	second := a.Assemble("")
	if !reflect.DeepEqual(first, second) {
		t.Error("two passes over unchanged inputs differ")
	}
	if Render(first) != Render(second) {
		t.Error("rendered output differs between passes")
	}
}

func TestAssembleStopsAtGlobalCap(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		".git/HEAD":                              "ref: refs/heads/007-search\n",
		".contextloom/product/charter.md":        filler(1000),
		".contextloom/product/tech-stack.md":     filler(1000),
		".contextloom/specs/007-search/spec.md":  filler(1000),
		".contextloom/product/roadmap.md":        "## P0\n- [ ] Never loaded\n",
		".contextloom/product/completed.md":      "- [x] Never loaded either\n",
		".contextloom/config.yml": `budget:
  total_tokens: 3000
  per_source_tokens: 1000
sources:
  charter: {priority: 1}
  current_spec: {priority: 2}
  tech_stack: {priority: 3}
  roadmap: {priority: 4}
  completed: {priority: 5}
  related_specs: {enabled: false}
`,
	})
	cfg := LoadOrDefault(root, discardLogger())
	a := NewAssembler(root, cfg, tokens.Heuristic(), discardLogger())
	lc := a.Assemble("")

	if len(lc.Sources) != 3 {
		t.Fatalf("loaded %d sources, want 3", len(lc.Sources))
	}
	if lc.TotalTokens > 3000 {
		t.Errorf("TotalTokens = %d, want <= 3000", lc.TotalTokens)
	}
	for _, src := range lc.Sources {
		if src.Type == workspace.SourceRoadmap || src.Type == workspace.SourceCompleted {
			t.Errorf("source %q loaded past the exhausted budget", src.Type)
		}
	}
}

func TestAssembleSoftThresholdGuidance(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		".git/HEAD":                       "ref: refs/heads/042-billing\n",
		".contextloom/product/charter.md": filler(9500),
		".contextloom/config.yml": `budget:
  total_tokens: 10000
  per_source_tokens: 10000
  soft_threshold_pct: 0.8
`,
	})
	cfg := LoadOrDefault(root, discardLogger())
	a := NewAssembler(root, cfg, tokens.Heuristic(), discardLogger())
	lc := a.Assemble("")

	if lc.AnyTruncated {
		t.Error("nothing should be truncated under the hard limit")
	}
	if lc.Guidance == "" {
		t.Fatal("soft threshold crossed but no guidance attached")
	}
	if !strings.Contains(lc.Guidance, "042-billing") {
		t.Errorf("guidance %q does not name the active unit", lc.Guidance)
	}
}

func TestAssembleCommandOverride(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{
		".contextloom/product/charter.md":    "# Charter\n\nShort.\n",
		".contextloom/product/tech-stack.md": "# Tech Stack\n\n- Go\n",
		".contextloom/config.yml": `commands:
  review:
    sources:
      tech_stack: {enabled: false}
`,
	})
	cfg := LoadOrDefault(root, discardLogger())
	a := NewAssembler(root, cfg, tokens.Heuristic(), discardLogger())

	hasTechStack := func(lc *LoadedContext) bool {
		for _, src := range lc.Sources {
			if src.Type == workspace.SourceTechStack {
				return true
			}
		}
		return false
	}

	if !hasTechStack(a.Assemble("")) {
		t.Error("tech stack missing without a command override")
	}
	if hasTechStack(a.Assemble("review")) {
		t.Error("review override failed to disable tech stack")
	}
}

func TestAssembleSkipsSourceUnderTinyRemainingBudget(t *testing.T) {
	t.Parallel()

	// The charter consumes all but 10 tokens of the cap; the tech-stack
	// truncation notice alone costs more than that, so the source must be
	// omitted instead of overshooting the cap.
	root := writeProject(t, map[string]string{
		".contextloom/product/charter.md":    filler(1000),
		".contextloom/product/tech-stack.md": filler(500),
		".contextloom/config.yml": `budget:
  total_tokens: 1010
  per_source_tokens: 1000
sources:
  charter: {priority: 1}
  tech_stack: {priority: 2}
`,
	})
	cfg := LoadOrDefault(root, discardLogger())
	a := NewAssembler(root, cfg, tokens.Heuristic(), discardLogger())
	lc := a.Assemble("")

	if len(lc.Sources) != 1 || lc.Sources[0].Type != workspace.SourceCharter {
		t.Fatalf("expected only the charter, got %d sources", len(lc.Sources))
	}
	if lc.TotalTokens > 1010 {
		t.Errorf("TotalTokens = %d, want <= 1010", lc.TotalTokens)
	}
}

func TestCondenseEvictsByConfiguredOrder(t *testing.T) {
	t.Parallel()

	est := tokens.Heuristic()
	cfg := DefaultConfig()
	cfg.Budget.TotalTokens = 2000

	mk := func(st workspace.SourceType, n int) ContextSource {
		text := filler(n)
		return ContextSource{Type: st, Identifier: string(st), Content: text, TokenCount: est.Estimate(text)}
	}
	lc := &LoadedContext{}
	lc.add(mk(workspace.SourceCharter, 800))
	lc.add(mk(workspace.SourceTechStack, 800))
	lc.add(mk(workspace.SourceCompleted, 800))

	a := NewAssembler("", cfg, est, discardLogger())
	a.condense(cfg, lc)

	if !lc.AnyTruncated {
		t.Error("eviction must mark the bundle truncated")
	}
	if lc.TotalTokens > 2000 {
		t.Errorf("TotalTokens = %d after eviction, want <= 2000", lc.TotalTokens)
	}
	if len(lc.Sources) != 2 {
		t.Fatalf("kept %d sources, want 2", len(lc.Sources))
	}
	// Completed sits last in the default eviction order, so it goes
	// first; the survivors keep their bundle order.
	if lc.Sources[0].Type != workspace.SourceCharter || lc.Sources[1].Type != workspace.SourceTechStack {
		t.Errorf("kept %q then %q, want charter then tech_stack", lc.Sources[0].Type, lc.Sources[1].Type)
	}
}

func TestCondenseClipsSoleOversizedSource(t *testing.T) {
	t.Parallel()

	est := tokens.Heuristic()
	cfg := DefaultConfig()
	cfg.Budget.TotalTokens = 100

	text := "# Charter\n\n" + filler(300)
	lc := &LoadedContext{}
	lc.add(ContextSource{
		Type:       workspace.SourceCharter,
		Identifier: "charter.md",
		Content:    text,
		TokenCount: est.Estimate(text),
	})

	a := NewAssembler("", cfg, est, discardLogger())
	a.condense(cfg, lc)

	if len(lc.Sources) != 1 {
		t.Fatalf("sole source was dropped, kept %d", len(lc.Sources))
	}
	got := lc.Sources[0]
	if got.TokenCount > 100 {
		t.Errorf("clipped source still %d tokens, want <= 100", got.TokenCount)
	}
	if !got.Truncated {
		t.Error("clipped source not marked truncated")
	}
	if !strings.Contains(got.Content, "# Charter") {
		t.Error("clip lost the document title")
	}
	if !lc.AnyTruncated {
		t.Error("bundle not marked truncated after clipping")
	}
}

func TestCondenseDropsSoleSourceUnderSubNoticeCap(t *testing.T) {
	t.Parallel()

	est := tokens.Heuristic()
	cfg := DefaultConfig()
	cfg.Budget.TotalTokens = 5

	text := "# Charter\n\n" + filler(300)
	lc := &LoadedContext{}
	lc.add(ContextSource{
		Type:       workspace.SourceCharter,
		Identifier: "charter.md",
		Content:    text,
		TokenCount: est.Estimate(text),
	})

	a := NewAssembler("", cfg, est, discardLogger())
	a.condense(cfg, lc)

	// A cap below the truncation notice size leaves nothing valid to
	// keep; the budget invariant wins over retention.
	if len(lc.Sources) != 0 {
		t.Fatalf("kept %d sources under a sub-notice cap", len(lc.Sources))
	}
	if lc.TotalTokens > 5 {
		t.Errorf("TotalTokens = %d, want <= 5", lc.TotalTokens)
	}
	if !lc.AnyTruncated {
		t.Error("bundle not marked truncated after dropping the source")
	}
}
