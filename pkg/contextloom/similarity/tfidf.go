package similarity

import (
	"math"
	"strings"
)

// Weights blends the TF-IDF cosine score with position and section
// bonuses. The default split is a tunable constant, not a correctness
// invariant; weights are normalized to sum to one.
type Weights struct {
	TermFrequency float64 `yaml:"term_frequency"`
	Position      float64 `yaml:"position"`
	Section       float64 `yaml:"section"`
}

// DefaultWeights returns the default relevance blend.
func DefaultWeights() Weights {
	return Weights{TermFrequency: 0.5, Position: 0.3, Section: 0.2}
}

func (w Weights) normalized() Weights {
	sum := w.TermFrequency + w.Position + w.Section
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		TermFrequency: w.TermFrequency / sum,
		Position:      w.Position / sum,
		Section:       w.Section / sum,
	}
}

// leadChars bounds the excerpt prefix considered for the position bonus.
const leadChars = 240

type tfidfRanker struct {
	weights Weights
}

// NewTFIDF returns the primary ranker: TF-IDF vectorization with cosine
// similarity, blended with position and section overlap bonuses.
func NewTFIDF(w Weights) Ranker {
	return tfidfRanker{weights: w.normalized()}
}

func (tfidfRanker) Name() string { return "tfidf" }

func (r tfidfRanker) Rank(active string, candidates []Candidate, threshold float64) []Scored {
	if len(candidates) == 0 {
		return nil
	}

	docs := make([][]string, 0, len(candidates)+1)
	docs = append(docs, tokenize(active))
	for _, c := range candidates {
		docs = append(docs, tokenize(c.Excerpt))
	}
	idf := inverseDocFrequency(docs)
	activeVec := vectorize(docs[0], idf)

	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		base := cosine(activeVec, vectorize(docs[i+1], idf))
		score := r.blend(base, active, c.Excerpt)
		scored = append(scored, Scored{ID: c.ID, Excerpt: c.Excerpt, Score: score})
	}
	return finish(scored, threshold)
}

// blend mixes the cosine score with position and section bonuses. A bonus
// component with no signal on either side drops out, and the remaining
// weights are renormalized, so documents without headings are not
// penalized for lacking them.
func (r tfidfRanker) blend(base float64, active, excerpt string) float64 {
	score := r.weights.TermFrequency * base
	weightSum := r.weights.TermFrequency

	if v, ok := overlap(leadTerms(active), leadTerms(excerpt)); ok {
		score += r.weights.Position * v
		weightSum += r.weights.Position
	}
	if v, ok := overlap(headingTerms(active), headingTerms(excerpt)); ok {
		score += r.weights.Section * v
		weightSum += r.weights.Section
	}

	score /= weightSum
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// overlap is the Jaccard overlap of two term sets, reporting ok=false
// when either side carries no signal.
func overlap(a, b map[string]bool) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	return jaccard(a, b), true
}

// leadTerms extracts the keyword set of an excerpt's opening text.
func leadTerms(text string) map[string]bool {
	if len(text) > leadChars {
		text = text[:leadChars]
	}
	return keywordSet(text)
}

// headingTerms extracts the keyword set of an excerpt's markdown
// headings.
func headingTerms(text string) map[string]bool {
	var headings []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings = append(headings, line)
		}
	}
	return keywordSet(strings.Join(headings, "\n"))
}

// inverseDocFrequency computes smoothed IDF over the whole corpus of one
// ranking call (active excerpt plus candidates).
func inverseDocFrequency(docs [][]string) map[string]float64 {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, term := range doc {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}
	idf := make(map[string]float64, len(df))
	n := float64(len(docs))
	for term, count := range df {
		idf[term] = math.Log(1 + n/float64(1+count))
	}
	return idf
}

// vectorize builds a term-frequency vector scaled by IDF.
func vectorize(doc []string, idf map[string]float64) map[string]float64 {
	if len(doc) == 0 {
		return nil
	}
	counts := make(map[string]int, len(doc))
	for _, term := range doc {
		counts[term]++
	}
	vec := make(map[string]float64, len(counts))
	total := float64(len(doc))
	for term, count := range counts {
		vec[term] = float64(count) / total * idf[term]
	}
	return vec
}

// cosine computes cosine similarity between sparse vectors, clamped to
// [0,1]. Zero vectors score zero.
func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, av := range a {
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
		normA += av * av
	}
	for _, bv := range b {
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	c := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
