package engine

import (
	"log/slog"
	"sort"

	"github.com/davenloft/contextloom/pkg/contextloom/roadmap"
	"github.com/davenloft/contextloom/pkg/contextloom/similarity"
	"github.com/davenloft/contextloom/pkg/contextloom/tokens"
	"github.com/davenloft/contextloom/pkg/contextloom/truncate"
	"github.com/davenloft/contextloom/pkg/contextloom/workspace"
)

// Assembler builds context bundles for one project root. It is cheap to
// construct; each Assemble call opens a fresh workspace Reader so no
// file content leaks between passes.
type Assembler struct {
	root      string
	config    *Config
	estimator tokens.Estimator
	logger    *slog.Logger
}

// NewAssembler creates an Assembler. A nil config means built-in
// defaults, a nil estimator means the process-wide default strategy.
func NewAssembler(root string, cfg *Config, est tokens.Estimator, logger *slog.Logger) *Assembler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if est == nil {
		est = tokens.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{root: root, config: cfg, estimator: est, logger: logger}
}

// Assemble loads every enabled source in priority order under the global
// token budget and runs the condensation checks on the result. The
// command name selects configured overrides; empty means globals only.
// Assemble never fails: absent or unreadable sources are skipped and the
// bundle may legitimately be empty.
func (a *Assembler) Assemble(command string) *LoadedContext {
	cfg := a.config.forCommand(command)
	reader := workspace.NewReader(a.root, a.logger)

	lc := &LoadedContext{}
	if unit, ok := reader.ActiveUnit(); ok {
		lc.ActiveUnit = unit
	}

	limit := cfg.Budget.TotalTokens
	for _, st := range loadOrder(cfg) {
		if lc.TotalTokens >= limit {
			// Cap reached; remaining sources simply do not appear.
			a.logger.Debug("engine: budget exhausted, stopping", "next", string(st), "total", lc.TotalTokens)
			break
		}
		budget := cfg.Budget.PerSourceTokens
		if remaining := limit - lc.TotalTokens; remaining < budget {
			budget = remaining
		}
		if budget <= 0 {
			break
		}

		switch st {
		case workspace.SourceRoadmap:
			a.loadRoadmap(reader, budget, lc)
		case workspace.SourceCompleted:
			a.loadCompleted(reader, budget, lc)
		case workspace.SourceRelatedSpecs:
			a.loadRelated(reader, cfg, budget, lc)
		default:
			a.loadDocument(reader, st, budget, lc)
		}
	}

	a.condense(cfg, lc)
	return lc
}

// loadOrder returns the enabled source types sorted ascending by
// priority, ties broken by canonical source order.
func loadOrder(cfg *Config) []workspace.SourceType {
	canonical := make(map[workspace.SourceType]int, len(workspace.AllSourceTypes))
	for i, st := range workspace.AllSourceTypes {
		canonical[st] = i
	}

	var order []workspace.SourceType
	for _, st := range workspace.AllSourceTypes {
		if cfg.Sources[st].Enabled {
			order = append(order, st)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		pi, pj := cfg.Sources[order[i]].Priority, cfg.Sources[order[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return canonical[order[i]] < canonical[order[j]]
	})
	return order
}

// loadDocument handles the single-document sources: charter, tech stack
// and the current spec.
func (a *Assembler) loadDocument(reader *workspace.Reader, st workspace.SourceType, budget int, lc *LoadedContext) {
	content, id, ok := reader.Read(st)
	if !ok {
		a.logger.Debug("engine: source absent", "type", string(st))
		return
	}
	res := truncate.Truncate(a.estimator, content, budget, id)
	if res.Text == "" {
		a.logger.Debug("engine: budget too small for source", "type", string(st), "budget", budget)
		return
	}
	lc.add(ContextSource{
		Type:           st,
		Identifier:     id,
		Content:        res.Text,
		TokenCount:     a.estimator.Estimate(res.Text),
		Truncated:      res.Truncated,
		OriginalTokens: res.OriginalTokens,
	})
}

// loadRoadmap summarizes the roadmap by tier, then applies the
// structural truncator as the safety net for budgets the summary still
// exceeds.
func (a *Assembler) loadRoadmap(reader *workspace.Reader, budget int, lc *LoadedContext) {
	raw, id, ok := reader.Read(workspace.SourceRoadmap)
	if !ok {
		a.logger.Debug("engine: source absent", "type", string(workspace.SourceRoadmap))
		return
	}
	items := roadmap.Parse(raw)
	if len(items) == 0 {
		a.logger.Debug("engine: roadmap has no checklist items", "path", id)
		return
	}
	sum := roadmap.Summarize(items, lc.ActiveUnit)
	res := truncate.Truncate(a.estimator, sum.Text, budget, id)
	if res.Text == "" {
		a.logger.Debug("engine: budget too small for source", "type", string(workspace.SourceRoadmap), "budget", budget)
		return
	}
	lc.add(ContextSource{
		Type:           workspace.SourceRoadmap,
		Identifier:     id,
		Content:        res.Text,
		TokenCount:     a.estimator.Estimate(res.Text),
		Truncated:      res.Truncated,
		OriginalTokens: res.OriginalTokens,
	})
}

func (a *Assembler) loadCompleted(reader *workspace.Reader, budget int, lc *LoadedContext) {
	raw, id, ok := reader.Read(workspace.SourceCompleted)
	if !ok {
		a.logger.Debug("engine: source absent", "type", string(workspace.SourceCompleted))
		return
	}
	items := roadmap.ParseCompleted(raw)
	if len(items) == 0 {
		a.logger.Debug("engine: completed log has no checked items", "path", id)
		return
	}
	res := truncate.Truncate(a.estimator, roadmap.FormatCompleted(items), budget, id)
	if res.Text == "" {
		a.logger.Debug("engine: budget too small for source", "type", string(workspace.SourceCompleted), "budget", budget)
		return
	}
	lc.add(ContextSource{
		Type:           workspace.SourceCompleted,
		Identifier:     id,
		Content:        res.Text,
		TokenCount:     a.estimator.Estimate(res.Text),
		Truncated:      res.Truncated,
		OriginalTokens: res.OriginalTokens,
	})
}

// loadRelated ranks the other spec documents against the current spec
// and loads the top matches, splitting the source budget evenly across
// the configured maximum count.
func (a *Assembler) loadRelated(reader *workspace.Reader, cfg *Config, budget int, lc *LoadedContext) {
	sc := cfg.Sources[workspace.SourceRelatedSpecs]
	if sc.MaxCount <= 0 {
		return
	}
	active, _, ok := reader.Read(workspace.SourceCurrentSpec)
	if !ok {
		a.logger.Debug("engine: no current spec, skipping related specs")
		return
	}
	excerpts := reader.SpecExcerpts(cfg.Similarity.ExcerptChars)
	if len(excerpts) == 0 {
		return
	}

	candidates := make([]similarity.Candidate, len(excerpts))
	for i, e := range excerpts {
		candidates[i] = similarity.Candidate{ID: e.ID, Excerpt: e.Excerpt}
	}
	ranker := similarity.ForStrategy(cfg.Similarity.Strategy, cfg.Similarity.Weights)
	scored := ranker.Rank(active, candidates, cfg.Similarity.Threshold)
	if len(scored) > sc.MaxCount {
		scored = scored[:sc.MaxCount]
	}

	perDoc := budget / sc.MaxCount
	if perDoc <= 0 {
		return
	}
	for _, s := range scored {
		content, ok := reader.ReadSpec(s.ID)
		if !ok {
			continue
		}
		path := workspace.SpecPath(s.ID)
		res := truncate.Truncate(a.estimator, content, perDoc, path)
		if res.Text == "" {
			a.logger.Debug("engine: budget too small for source", "type", string(workspace.SourceRelatedSpecs), "budget", perDoc)
			continue
		}
		lc.add(ContextSource{
			Type:           workspace.SourceRelatedSpecs,
			Identifier:     path,
			Content:        res.Text,
			TokenCount:     a.estimator.Estimate(res.Text),
			Truncated:      res.Truncated,
			OriginalTokens: res.OriginalTokens,
		})
	}
}
