// Package workspace resolves and reads the project documents that feed
// context assembly. A Reader is created per assembly pass; reads are
// memoized in an LRU cache so one pass never touches the same file twice.
// Missing files are not errors, they simply yield no content.
package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SourceType names one category of background document.
type SourceType string

const (
	SourceCharter      SourceType = "charter"
	SourceTechStack    SourceType = "tech_stack"
	SourceRoadmap      SourceType = "roadmap"
	SourceCompleted    SourceType = "completed"
	SourceCurrentSpec  SourceType = "current_spec"
	SourceRelatedSpecs SourceType = "related_specs"
)

// AllSourceTypes is the canonical order, used to break priority ties.
var AllSourceTypes = []SourceType{
	SourceCharter,
	SourceTechStack,
	SourceRoadmap,
	SourceCompleted,
	SourceCurrentSpec,
	SourceRelatedSpecs,
}

const (
	loomDir    = ".contextloom"
	productDir = "product"
	specsDir   = "specs"
	specFile   = "spec.md"

	// readCacheSize bounds the per-pass content cache. A pass touches at
	// most a handful of product docs plus the spec directory.
	readCacheSize = 64
)

// productPaths maps single-document source types to their fixed relative
// paths under the project root.
var productPaths = map[SourceType]string{
	SourceCharter:   filepath.Join(loomDir, productDir, "charter.md"),
	SourceTechStack: filepath.Join(loomDir, productDir, "tech-stack.md"),
	SourceRoadmap:   filepath.Join(loomDir, productDir, "roadmap.md"),
	SourceCompleted: filepath.Join(loomDir, productDir, "completed.md"),
}

// cachedRead memoizes one resolved path, including negative results so a
// missing file is only probed once per pass.
type cachedRead struct {
	text string
	ok   bool
}

// Reader loads raw artifact text for one assembly pass.
type Reader struct {
	root   string
	logger *slog.Logger
	cache  *lru.Cache[string, cachedRead]
}

// NewReader creates a Reader rooted at the given project directory.
func NewReader(root string, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, cachedRead](readCacheSize)
	return &Reader{root: root, logger: logger, cache: cache}
}

// Read resolves and loads the document for a single-document source type.
// It returns the content, the identifier (project-relative path), and
// whether the source was present and readable. SourceRelatedSpecs is a
// multi-item source and is served by SpecExcerpts/ReadSpec instead.
func (r *Reader) Read(t SourceType) (content, identifier string, ok bool) {
	switch t {
	case SourceCurrentSpec:
		unit, found := r.ActiveUnit()
		if !found {
			return "", "", false
		}
		rel := filepath.Join(loomDir, specsDir, unit, specFile)
		text, readable := r.readFile(rel)
		return text, rel, readable
	case SourceRelatedSpecs:
		return "", "", false
	default:
		rel, known := productPaths[t]
		if !known {
			r.logger.Warn("workspace: unknown source type", "type", string(t))
			return "", "", false
		}
		text, readable := r.readFile(rel)
		return text, rel, readable
	}
}

// readFile loads a project-relative path through the per-pass cache.
// Unreadable or non-UTF-8 content is skipped with a diagnostic, never an
// error surfaced to the caller.
func (r *Reader) readFile(rel string) (string, bool) {
	if cached, hit := r.cache.Get(rel); hit {
		return cached.text, cached.ok
	}

	data, err := os.ReadFile(filepath.Join(r.root, rel))
	if err != nil {
		r.logger.Debug("workspace: source absent", "path", rel)
		r.cache.Add(rel, cachedRead{})
		return "", false
	}
	text := string(data)
	if !utf8.ValidString(text) {
		r.logger.Warn("workspace: skipping undecodable source", "path", rel)
		r.cache.Add(rel, cachedRead{})
		return "", false
	}

	r.cache.Add(rel, cachedRead{text: text, ok: true})
	return text, true
}
