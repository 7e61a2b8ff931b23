package engine

import (
	"fmt"
	"strings"

	"github.com/davenloft/contextloom/pkg/contextloom/workspace"
)

// Rendering markers. Downstream consumers locate the bundle by searching
// for these exact strings, so they must stay stable.
const (
	OpenMarker  = "<!-- contextloom:begin -->"
	CloseMarker = "<!-- contextloom:end -->"
)

var sourceHeadings = map[workspace.SourceType]string{
	workspace.SourceCharter:   "## Project Charter",
	workspace.SourceTechStack: "## Tech Stack",
	workspace.SourceRoadmap:   "## Roadmap Summary",
	workspace.SourceCompleted: "## Completed Work",
}

// Render serializes a bundle to its canonical text form: opening marker,
// guidance block first when present, one heading-plus-content section per
// source, closing marker. Truncation notices already live inside the
// source content, appended by the truncator.
func Render(lc *LoadedContext) string {
	var b strings.Builder
	b.WriteString(OpenMarker)
	b.WriteString("\n\n")

	if lc.Guidance != "" {
		b.WriteString("> ")
		b.WriteString(lc.Guidance)
		b.WriteString("\n\n")
	}

	for _, src := range lc.Sources {
		b.WriteString(headingFor(src, lc.ActiveUnit))
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(src.Content, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString(CloseMarker)
	b.WriteString("\n")
	return b.String()
}

func headingFor(src ContextSource, activeUnit string) string {
	switch src.Type {
	case workspace.SourceCurrentSpec:
		if activeUnit != "" {
			return fmt.Sprintf("## Current Spec (%s)", activeUnit)
		}
		return "## Current Spec"
	case workspace.SourceRelatedSpecs:
		return fmt.Sprintf("## Related Spec: %s", src.Identifier)
	default:
		if h, ok := sourceHeadings[src.Type]; ok {
			return h
		}
		return "## " + string(src.Type)
	}
}
