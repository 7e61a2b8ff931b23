package engine

import (
	"github.com/davenloft/contextloom/pkg/contextloom/workspace"
)

// ContextSource is one assembled bundle entry. Records are immutable
// once appended; condensation replaces entries rather than editing them
// in place.
type ContextSource struct {
	Type       workspace.SourceType
	Identifier string
	Content    string
	TokenCount int

	// Truncated reports whether the content was cut or clipped to fit a
	// budget. OriginalTokens is the pre-cut estimate, zero when nothing
	// was cut.
	Truncated      bool
	OriginalTokens int
}

// LoadedContext is the result of one assembly pass.
type LoadedContext struct {
	Sources      []ContextSource
	TotalTokens  int
	AnyTruncated bool

	// Guidance is a consumer-facing prioritization note attached when the
	// bundle approaches the global budget. Empty when not applicable.
	Guidance string

	// ActiveUnit is the resolved work-unit id, empty when underivable.
	ActiveUnit string
}

func (lc *LoadedContext) add(src ContextSource) {
	lc.Sources = append(lc.Sources, src)
	lc.TotalTokens += src.TokenCount
	if src.Truncated {
		lc.AnyTruncated = true
	}
}
