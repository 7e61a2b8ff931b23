package workspace

import (
	"os"
	"path/filepath"
	"sort"
)

// SpecExcerpt is a candidate document for related-spec ranking: the spec
// directory name plus a leading excerpt of its text.
type SpecExcerpt struct {
	ID      string
	Excerpt string
}

// SpecExcerpts lists every spec document other than the active unit's,
// each with at most excerptChars of leading text. Results are sorted by
// ID so ranking input is deterministic across passes.
func (r *Reader) SpecExcerpts(excerptChars int) []SpecExcerpt {
	entries, err := os.ReadDir(filepath.Join(r.root, loomDir, specsDir))
	if err != nil {
		r.logger.Debug("workspace: no spec directory", "error", err)
		return nil
	}

	active, _ := r.ActiveUnit()

	var excerpts []SpecExcerpt
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == active {
			continue
		}
		if !unitPattern.MatchString(entry.Name()) {
			continue
		}
		text, ok := r.ReadSpec(entry.Name())
		if !ok {
			continue
		}
		if excerptChars > 0 && len(text) > excerptChars {
			text = text[:excerptChars]
		}
		excerpts = append(excerpts, SpecExcerpt{ID: entry.Name(), Excerpt: text})
	}

	sort.Slice(excerpts, func(i, j int) bool { return excerpts[i].ID < excerpts[j].ID })
	return excerpts
}

// ReadSpec loads the full spec document for a unit directory, memoized
// like every other read in the pass.
func (r *Reader) ReadSpec(unit string) (string, bool) {
	return r.readFile(filepath.Join(loomDir, specsDir, unit, specFile))
}

// SpecPath returns the project-relative identifier for a unit's spec.
func SpecPath(unit string) string {
	return filepath.Join(loomDir, specsDir, unit, specFile)
}
