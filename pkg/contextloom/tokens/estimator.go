// Package tokens estimates text size in model tokens. Two interchangeable
// strategies exist: a precise tiktoken encoder when one can be constructed,
// and a chars/4 heuristic otherwise. The choice is made once per process
// and never re-probed.
package tokens

import (
	"fmt"
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Estimator converts a text string to an estimated token count.
// Implementations are side-effect free and monotonic in text length, so
// all budget arithmetic downstream is agnostic to which strategy is active.
type Estimator interface {
	// Estimate returns the estimated token count for text.
	Estimate(text string) int

	// Name identifies the strategy (for diagnostics).
	Name() string
}

// charsPerToken is the heuristic ratio of UTF-8 bytes per token.
const charsPerToken = 4

type heuristic struct{}

// Heuristic returns the fallback estimator: one token per four
// characters, floor 1.
func Heuristic() Estimator { return heuristic{} }

func (heuristic) Name() string { return "heuristic" }

func (heuristic) Estimate(text string) int {
	n := len(text) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

type tiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken builds the precise estimator backed by the cl100k_base
// encoding (shared by GPT-4 and a close approximation for Claude).
func NewTiktoken() (Estimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokens: get encoding: %w", err)
	}
	return &tiktokenEstimator{enc: enc}, nil
}

func (t *tiktokenEstimator) Name() string { return "tiktoken" }

func (t *tiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 1
	}
	return len(t.enc.Encode(text, nil, nil))
}

var (
	defaultOnce sync.Once
	defaultEst  Estimator
)

// Default returns the process-wide estimator. The precise tokenizer is
// probed exactly once; any failure selects the heuristic for the rest of
// the process lifetime. Safe for concurrent read-only use.
func Default() Estimator {
	defaultOnce.Do(func() {
		est, err := NewTiktoken()
		if err != nil {
			slog.Debug("tokens: precise tokenizer unavailable, using heuristic", "error", err)
			defaultEst = Heuristic()
			return
		}
		defaultEst = est
	})
	return defaultEst
}
