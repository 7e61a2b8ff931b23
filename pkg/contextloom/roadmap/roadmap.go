// Package roadmap parses priority-tagged roadmap checklists and the
// completed-items log, and summarizes open items in tiers: full detail
// for the active feature and high-priority work, titles only for the
// rest. All reduction is extractive; no text is generated.
package roadmap

import (
	"regexp"
	"strings"
)

// Tier is a roadmap priority tier. Lower values are more important.
type Tier int

const (
	TierP0 Tier = iota
	TierP1
	TierP2
	TierP3
)

func (t Tier) String() string {
	switch t {
	case TierP0:
		return "P0"
	case TierP1:
		return "P1"
	case TierP2:
		return "P2"
	default:
		return "P3"
	}
}

// defaultTier applies to items with no section marker and no inline tag.
const defaultTier = TierP2

// highTierMax is the highest tier still rendered in full detail.
const highTierMax = TierP1

// Item is one roadmap entry, ephemeral to a single summarize call.
type Item struct {
	Text       string
	Tier       Tier
	Rationale  string
	FeatureRef string
	Completed  bool
}

// CompletedItem is one entry of the completed-items log.
type CompletedItem struct {
	Text        string
	Tier        Tier
	CompletedOn string
	FeatureRef  string
}

var (
	// itemPattern matches checklist lines: "- [ ] text" / "- [x] text".
	itemPattern = regexp.MustCompile(`^\s*-\s*\[([ xX])\]\s+(.*)$`)

	// tierHeading matches section markers that set the current tier,
	// e.g. "## P1" or "### High Priority".
	tierHeading = regexp.MustCompile(`(?i)^#{2,4}\s*(?:(P[0-3])\b|(high|medium|low)\s+priority)`)

	// inlineTag matches an embedded priority tag such as "[P0]".
	inlineTag = regexp.MustCompile(`\[(P[0-3])\]`)

	// featureRef matches an embedded work-unit reference, e.g.
	// "[012-user-auth]".
	featureRef = regexp.MustCompile(`\[(\d+-[A-Za-z0-9][A-Za-z0-9._-]*)\]`)

	// rationaleLine matches an indented rationale continuation line.
	rationaleLine = regexp.MustCompile(`(?i)^\s{2,}rationale:\s*(.+)$`)

	// completionDate matches a trailing "(YYYY-MM-DD)" marker.
	completionDate = regexp.MustCompile(`\((\d{4}-\d{2}-\d{2})\)\s*$`)
)

// Parser states for the line-oriented scan.
const (
	stateOutside = iota // before any priority section marker
	stateInBlock        // inside a priority-tagged section
)

// Parse partitions roadmap text into items. Section markers set the tier
// for subsequent checklist lines; an inline [P0]-[P3] tag on an item
// overrides its section. A rationale line must immediately follow its
// item, indented.
func Parse(text string) []Item {
	var items []Item
	state := stateOutside
	sectionTier := defaultTier

	for _, line := range strings.Split(text, "\n") {
		if m := tierHeading.FindStringSubmatch(line); m != nil {
			state = stateInBlock
			sectionTier = tierFromHeading(m)
			continue
		}
		if m := itemPattern.FindStringSubmatch(line); m != nil {
			item := Item{Completed: m[1] != " "}
			body := m[2]

			tier := defaultTier
			if state == stateInBlock {
				tier = sectionTier
			}
			if tag := inlineTag.FindStringSubmatch(body); tag != nil {
				tier = tierFromTag(tag[1])
				body = strings.Replace(body, tag[0], "", 1)
			}
			item.Tier = tier

			if ref := featureRef.FindStringSubmatch(body); ref != nil {
				item.FeatureRef = ref[1]
				body = strings.Replace(body, ref[0], "", 1)
			}

			item.Text = strings.Join(strings.Fields(body), " ")
			items = append(items, item)
			continue
		}
		if m := rationaleLine.FindStringSubmatch(line); m != nil && len(items) > 0 {
			last := &items[len(items)-1]
			if last.Rationale == "" {
				last.Rationale = strings.TrimSpace(m[1])
			}
		}
	}
	return items
}

// ParseCompleted parses the completed-items log: checked entries with an
// optional trailing completion date. Unchecked lines are ignored, the log
// records finished work only.
func ParseCompleted(text string) []CompletedItem {
	var completed []CompletedItem
	for _, item := range Parse(text) {
		if !item.Completed {
			continue
		}
		entry := CompletedItem{Text: item.Text, Tier: item.Tier, FeatureRef: item.FeatureRef}
		if m := completionDate.FindStringSubmatch(item.Text); m != nil {
			entry.CompletedOn = m[1]
			entry.Text = strings.TrimSpace(strings.TrimSuffix(item.Text, m[0]))
		}
		completed = append(completed, entry)
	}
	return completed
}

func tierFromHeading(m []string) Tier {
	if m[1] != "" {
		return tierFromTag(strings.ToUpper(m[1]))
	}
	switch strings.ToLower(m[2]) {
	case "high":
		return TierP1
	case "medium":
		return TierP2
	default:
		return TierP3
	}
}

func tierFromTag(tag string) Tier {
	switch strings.ToUpper(tag) {
	case "P0":
		return TierP0
	case "P1":
		return TierP1
	case "P2":
		return TierP2
	default:
		return TierP3
	}
}
