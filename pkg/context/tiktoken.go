package context

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenEstimator backs EstimateTokens with a real cl100k_base encoding
// instead of the heuristic ⌈len/4⌉ approximation. Callers opt in via
// Config.Estimator when they need accuracy closer to an actual LLM's
// tokenizer, at the cost of loading the encoding's merge table on first
// use.
type TiktokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenEstimator returns an Estimator backed by the cl100k_base
// encoding used by GPT-3.5/4-class models. The encoding is loaded lazily
// on first EstimateTokens call so constructing one is always cheap.
func NewTiktokenEstimator() *TiktokenEstimator {
	return &TiktokenEstimator{}
}

func (t *TiktokenEstimator) load() {
	t.enc, t.err = tiktoken.GetEncoding("cl100k_base")
}

// EstimateTokens returns the exact cl100k_base token count, falling back
// to the heuristic estimator if the encoding failed to load (e.g. no
// network access to fetch its BPE ranks on first use in an offline
// environment).
func (t *TiktokenEstimator) EstimateTokens(content string) int {
	t.once.Do(t.load)
	if t.err != nil || t.enc == nil {
		return HeuristicEstimator{}.EstimateTokens(content)
	}
	return len(t.enc.Encode(content, nil, nil))
}
