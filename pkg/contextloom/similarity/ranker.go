// Package similarity scores candidate documents against an active
// document and returns those above a relevance threshold. The primary
// strategy vectorizes excerpts with TF-IDF weighting and compares them by
// cosine similarity; the fallback compares stop-word-filtered keyword
// sets by Jaccard similarity. Both return scores in [0,1].
package similarity

import (
	"sort"
	"sync"
)

// Candidate is one document offered for ranking.
type Candidate struct {
	ID      string
	Excerpt string
}

// Scored is a ranked candidate with its relevance score in [0,1].
type Scored struct {
	ID      string
	Excerpt string
	Score   float64
}

// Ranker orders candidates by relevance to an active excerpt.
type Ranker interface {
	// Rank returns candidates scoring at or above threshold, descending
	// by score. An empty candidate list yields an empty result.
	Rank(active string, candidates []Candidate, threshold float64) []Scored

	// Name identifies the strategy (for diagnostics).
	Name() string
}

var (
	defaultOnce   sync.Once
	defaultRanker Ranker
)

// Default returns the process-wide ranker: the TF-IDF strategy with
// default weights, resolved exactly once. Safe for concurrent read-only
// use.
func Default() Ranker {
	defaultOnce.Do(func() {
		defaultRanker = NewTFIDF(DefaultWeights())
	})
	return defaultRanker
}

// ForStrategy resolves a configured strategy name. "keyword" forces the
// lexical fallback and "tfidf" builds a vector ranker with the given
// weights; anything else ("auto" included) shares the process-wide
// default ranker unless the weights were tuned.
func ForStrategy(name string, w Weights) Ranker {
	switch name {
	case "keyword":
		return NewKeyword()
	case "tfidf":
		return NewTFIDF(w)
	default:
		if w == DefaultWeights() {
			return Default()
		}
		return NewTFIDF(w)
	}
}

// finish filters, orders, and returns the scored set shared by both
// strategies. Ties break on ID so ranking is deterministic.
func finish(scored []Scored, threshold float64) []Scored {
	var kept []Scored
	for _, s := range scored {
		if s.Score >= threshold {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})
	return kept
}
