package roadmap

import (
	"fmt"
	"sort"
	"strings"
)

// titleMaxChars hard-caps title-only lines for lower-tier items.
const titleMaxChars = 80

// Summary is the extractive roadmap summary.
type Summary struct {
	Text      string
	ItemCount int

	// Tiers lists the priority tags present in the output, ascending.
	Tiers []string
}

// Summarize renders open items in three levels of detail: items matching
// the active feature reference in full with rationale, remaining P0/P1
// items in full, and everything else as title-only lines. Completed items
// never appear. No token backtracking happens here; callers apply the
// structural truncator afterwards as the safety net.
func Summarize(items []Item, activeRef string) Summary {
	var current, high, low []Item
	for _, item := range items {
		if item.Completed {
			continue
		}
		switch {
		case activeRef != "" && item.FeatureRef == activeRef:
			current = append(current, item)
		case item.Tier <= highTierMax:
			high = append(high, item)
		default:
			low = append(low, item)
		}
	}

	var b strings.Builder
	b.WriteString("## Roadmap\n")
	tiers := make(map[Tier]bool)

	if len(current) > 0 {
		fmt.Fprintf(&b, "\n### Current Feature (%s)\n\n", activeRef)
		for _, item := range current {
			writeFull(&b, item)
			tiers[item.Tier] = true
		}
	}
	if len(high) > 0 {
		b.WriteString("\n### High Priority\n\n")
		for _, item := range high {
			writeFull(&b, item)
			tiers[item.Tier] = true
		}
	}
	if len(low) > 0 {
		b.WriteString("\n### Upcoming\n\n")
		for _, item := range low {
			fmt.Fprintf(&b, "- %s\n", titleOf(item.Text))
			tiers[item.Tier] = true
		}
	}

	var tags []string
	for tier := range tiers {
		tags = append(tags, tier.String())
	}
	sort.Strings(tags)

	return Summary{
		Text:      b.String(),
		ItemCount: len(current) + len(high) + len(low),
		Tiers:     tags,
	}
}

// FormatCompleted renders the completed-items log as compact title lines
// with their completion dates.
func FormatCompleted(items []CompletedItem) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Completed Work\n\n")
	for _, item := range items {
		b.WriteString("- " + titleOf(item.Text))
		if item.CompletedOn != "" {
			b.WriteString(" (" + item.CompletedOn + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeFull(b *strings.Builder, item Item) {
	fmt.Fprintf(b, "- [%s] %s\n", item.Tier, item.Text)
	if item.Rationale != "" {
		fmt.Fprintf(b, "  Rationale: %s\n", item.Rationale)
	}
}

// titleOf reduces item text to its first sentence, hard-capped to 80
// characters.
func titleOf(text string) string {
	title := text
	if idx := strings.Index(title, ". "); idx >= 0 {
		title = title[:idx+1]
	}
	if len(title) > titleMaxChars {
		title = strings.TrimSpace(title[:titleMaxChars-3]) + "..."
	}
	return title
}
