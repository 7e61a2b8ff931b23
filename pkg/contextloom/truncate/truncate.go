// Package truncate reduces a markdown document to a token budget while
// preserving structural signal ahead of raw volume: the title survives
// verbatim, a human-authored summary outranks auto-selected headings, and
// headings with their lead paragraphs outrank plain top-of-document text.
package truncate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davenloft/contextloom/pkg/contextloom/tokens"
)

// Result is the outcome of one truncation.
type Result struct {
	Text      string
	Truncated bool

	// OriginalTokens is the pre-truncation estimate; set only when
	// Truncated is true, and always >= the estimate of Text.
	OriginalTokens int
}

// Fractions of the budget reserved for each structural phase.
const (
	summaryBudgetPct = 90
	headingBudgetPct = 70
)

// Truncate returns text unchanged when it fits within maxTokens.
// Otherwise it builds a reduced document: first H1 verbatim, then either
// the whole Summary/Overview section (if it fits 90% of the budget) or
// second-level headings with their lead paragraphs (up to 70%), then as
// much top-of-document text as still fits, and a trailing notice naming
// the original size and the full source. Kept units render in document
// order regardless of which phase selected them.
//
// A budget too small for even the trailing notice yields empty Text with
// Truncated set; callers treat that as an absent source rather than
// emitting over-budget content.
func Truncate(est tokens.Estimator, text string, maxTokens int, ref string) Result {
	original := est.Estimate(text)
	if original <= maxTokens {
		return Result{Text: text}
	}

	units := parseUnits(text)
	notice := fmt.Sprintf("> Truncated from %d tokens. Full text: %s", original, ref)
	budget := maxTokens - est.Estimate(notice)
	if budget < 1 {
		budget = 1
	}

	kept := make([]int, 0, len(units))
	seen := make(map[int]bool)
	used := 0
	add := func(idx int) {
		kept = append(kept, idx)
		seen[idx] = true
		used += est.Estimate(units[idx].text)
	}

	// Phase 1: first top-level heading, verbatim.
	if title := firstTitle(units); title >= 0 {
		add(title)
	}

	// Phase 2: a whole Summary/Overview section when it fits 90% of budget.
	summary := summarySection(units)
	summaryFits := false
	if len(summary) > 0 {
		cost := 0
		for _, idx := range summary {
			cost += est.Estimate(units[idx].text)
		}
		if used+cost <= budget*summaryBudgetPct/100 {
			summaryFits = true
			for _, idx := range summary {
				if !seen[idx] {
					add(idx)
				}
			}
		}
	}

	// Phase 3: otherwise walk H2 headings with their lead paragraphs.
	if !summaryFits {
		for _, pair := range headingLeads(units) {
			cost := 0
			for _, idx := range pair {
				cost += est.Estimate(units[idx].text)
			}
			if used+cost > budget*headingBudgetPct/100 {
				break
			}
			for _, idx := range pair {
				if !seen[idx] {
					add(idx)
				}
			}
		}
	}

	// Phase 4: fill with unprocessed top-of-document units, stopping at
	// the last one that keeps the running estimate under budget.
	for idx := range units {
		if seen[idx] {
			continue
		}
		cost := est.Estimate(units[idx].text)
		if used+cost > budget {
			break
		}
		add(idx)
	}

	// kept holds selection order (title, structure, fill) so the safety
	// loop can drop the least important units first; the rendered output
	// follows document order instead.
	assemble := func() string {
		ordered := append([]int(nil), kept...)
		sort.Ints(ordered)
		parts := make([]string, 0, len(ordered)+1)
		for _, idx := range ordered {
			parts = append(parts, units[idx].text)
		}
		parts = append(parts, notice)
		return strings.Join(parts, "\n\n")
	}

	// Joining reintroduces separators the per-unit estimates did not
	// account for; drop the last-selected units until the result fits.
	out := assemble()
	for est.Estimate(out) > maxTokens && len(kept) > 0 {
		kept = kept[:len(kept)-1]
		out = assemble()
	}
	if len(kept) == 0 && est.Estimate(out) > maxTokens {
		// Not even the notice fits the budget.
		return Result{Truncated: true, OriginalTokens: original}
	}

	return Result{Text: out, Truncated: true, OriginalTokens: original}
}

// docUnit is one content unit: a heading line or a paragraph block.
type docUnit struct {
	text  string
	level int // 0 for body paragraphs, otherwise the heading level
}

// parseUnits splits a document into headings and paragraph blocks with a
// line-oriented scan. Blank lines and headings terminate the current
// block; a heading line forms a unit of its own.
func parseUnits(text string) []docUnit {
	var units []docUnit
	var block []string

	flush := func() {
		if len(block) > 0 {
			units = append(units, docUnit{text: strings.Join(block, "\n")})
			block = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case headingLevel(line) > 0:
			flush()
			units = append(units, docUnit{text: line, level: headingLevel(line)})
		default:
			block = append(block, line)
		}
	}
	flush()
	return units
}

// headingLevel returns the ATX heading level of a line, or 0.
func headingLevel(line string) int {
	trimmed := strings.TrimLeft(line, "#")
	n := len(line) - len(trimmed)
	if n == 0 || n > 6 || !strings.HasPrefix(trimmed, " ") {
		return 0
	}
	return n
}

// firstTitle returns the index of the first top-level heading, or -1.
func firstTitle(units []docUnit) int {
	for idx, u := range units {
		if u.level == 1 {
			return idx
		}
	}
	return -1
}

// summarySection finds a case-insensitive "Summary" or "Overview" H2
// section and returns the indices of its heading and body units, up to
// the next heading of level 1 or 2.
func summarySection(units []docUnit) []int {
	for idx, u := range units {
		if u.level != 2 {
			continue
		}
		title := strings.ToLower(u.text)
		if !strings.Contains(title, "summary") && !strings.Contains(title, "overview") {
			continue
		}
		section := []int{idx}
		for j := idx + 1; j < len(units); j++ {
			if units[j].level > 0 && units[j].level <= 2 {
				break
			}
			section = append(section, j)
		}
		return section
	}
	return nil
}

// headingLeads pairs each H2 heading with its immediately following
// paragraph, in document order.
func headingLeads(units []docUnit) [][]int {
	var pairs [][]int
	for idx, u := range units {
		if u.level != 2 {
			continue
		}
		pair := []int{idx}
		if idx+1 < len(units) && units[idx+1].level == 0 {
			pair = append(pair, idx+1)
		}
		pairs = append(pairs, pair)
	}
	return pairs
}
