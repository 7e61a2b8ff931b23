package engine

import (
	"fmt"
	"sort"

	"github.com/davenloft/contextloom/pkg/contextloom/truncate"
)

// condense runs the post-assembly checks: hard eviction at the global
// cap, then the soft guidance threshold re-checked against whatever
// total eviction left behind.
func (a *Assembler) condense(cfg *Config, lc *LoadedContext) {
	limit := cfg.Budget.TotalTokens
	if limit <= 0 {
		return
	}

	if lc.TotalTokens >= limit {
		a.evict(cfg, lc)
	}

	soft := int(float64(limit) * cfg.Budget.SoftThresholdPct)
	if soft > 0 && lc.TotalTokens >= soft {
		lc.Guidance = guidanceText(lc.ActiveUnit)
	}
}

// evict re-sorts the assembled sources by the configured eviction order
// and keeps the maximal prefix whose cumulative token count stays at or
// under the cap. A sole surviving source that alone exceeds the cap is
// clipped to fit rather than dropped. The retained sources keep their
// original bundle order.
func (a *Assembler) evict(cfg *Config, lc *LoadedContext) {
	limit := cfg.Budget.TotalTokens

	rank := make(map[string]int, len(cfg.EvictionOrder))
	for i, st := range cfg.EvictionOrder {
		rank[string(st)] = i
	}
	rankOf := func(src ContextSource) int {
		if r, ok := rank[string(src.Type)]; ok {
			return r
		}
		return len(cfg.EvictionOrder)
	}

	order := make([]int, len(lc.Sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rankOf(lc.Sources[order[i]]) < rankOf(lc.Sources[order[j]])
	})

	keep := make(map[int]bool, len(order))
	total := 0
	for pos, idx := range order {
		src := lc.Sources[idx]
		if total+src.TokenCount > limit {
			if pos == 0 {
				// Highest keep-priority source alone exceeds the cap:
				// clip it instead of producing an empty bundle. A cap too
				// small for even the truncation notice clips to nothing,
				// and the source goes too.
				res := truncate.Truncate(a.estimator, src.Content, limit, src.Identifier)
				if res.Text != "" {
					src.Content = res.Text
					src.TokenCount = a.estimator.Estimate(res.Text)
					src.Truncated = true
					if res.OriginalTokens > 0 {
						src.OriginalTokens = res.OriginalTokens
					}
					lc.Sources[idx] = src
					keep[idx] = true
					total += src.TokenCount
				}
			}
			break
		}
		keep[idx] = true
		total += src.TokenCount
	}

	kept := lc.Sources[:0]
	for i, src := range lc.Sources {
		if keep[i] {
			kept = append(kept, src)
		} else {
			a.logger.Debug("engine: evicted source over hard limit", "type", string(src.Type), "tokens", src.TokenCount)
		}
	}
	lc.Sources = kept
	lc.TotalTokens = total
	lc.AnyTruncated = true
}

// guidanceText is the fixed-format prioritization note attached near the
// budget. Consumers match on its shape, so changes here are breaking.
func guidanceText(activeUnit string) string {
	const tail = "Weight the highest-priority sections most heavily and treat lower-priority material as background only."
	if activeUnit != "" {
		return fmt.Sprintf("Context is near its size budget. Focus on the active feature %s. %s", activeUnit, tail)
	}
	return "Context is near its size budget. " + tail
}
