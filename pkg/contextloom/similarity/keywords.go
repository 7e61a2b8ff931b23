package similarity

import (
	"strings"
	"unicode"
)

type keywordRanker struct{}

// NewKeyword returns the lexical-overlap fallback ranker: Jaccard
// similarity over stop-word-filtered keyword sets.
func NewKeyword() Ranker { return keywordRanker{} }

func (keywordRanker) Name() string { return "keyword" }

func (keywordRanker) Rank(active string, candidates []Candidate, threshold float64) []Scored {
	activeSet := keywordSet(active)

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		set := keywordSet(c.Excerpt)
		score := 0.0
		if len(set) > 0 {
			score = jaccard(activeSet, set)
		}
		scored = append(scored, Scored{ID: c.ID, Excerpt: c.Excerpt, Score: score})
	}
	return finish(scored, threshold)
}

// jaccard computes |intersection| / |union| of two keyword sets.
// Two empty sets are identical, hence 1.0.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// keywordSet extracts the deduplicated keyword set of an excerpt.
func keywordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range tokenize(text) {
		set[w] = true
	}
	return set
}

// tokenize lowercases, strips punctuation, and filters stop words, short
// tokens, and pure numbers.
func tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	var keywords []string
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]{}*`~@#$%&_-+=<>/\\|")
		if !isKeyword(w) {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

// isKeyword rejects stop words, pure numbers, all-punctuation tokens, and
// tokens shorter than two characters.
func isKeyword(w string) bool {
	if len(w) < 2 {
		return false
	}
	if stopWords[w] {
		return false
	}
	allDigits := true
	for _, r := range w {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return false
	}
	allPunct := true
	for _, r := range w {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			allPunct = false
			break
		}
	}
	return !allPunct
}

// stopWords are common English words ignored during keyword extraction.
var stopWords = map[string]bool{
	"to": true, "of": true, "in": true, "is": true, "it": true,
	"an": true, "as": true, "at": true, "be": true, "by": true,
	"do": true, "go": true, "he": true, "if": true, "me": true,
	"my": true, "no": true, "on": true, "or": true, "so": true,
	"up": true, "we": true, "am": true,

	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "its": true, "let": true, "may": true, "who": true,
	"did": true, "get": true, "got": true, "him": true, "his": true,
	"how": true, "new": true, "now": true, "old": true,
	"see": true, "way": true, "too": true, "use": true,

	"that": true, "with": true, "have": true, "this": true, "will": true,
	"your": true, "from": true, "they": true, "been": true, "said": true,
	"each": true, "which": true, "their": true, "what": true, "about": true,
	"would": true, "there": true, "when": true, "make": true, "like": true,
	"just": true, "know": true, "take": true, "come": true,
	"could": true, "than": true, "only": true, "into": true,
	"over": true, "such": true, "also": true, "some": true,
	"them": true, "then": true, "these": true, "where": true,
	"much": true, "should": true, "well": true, "after": true,
	"very": true, "does": true, "here": true, "were": true,
	"more": true, "most": true, "many": true, "other": true, "those": true,
	"still": true, "even": true, "both": true, "same": true, "every": true,
}
