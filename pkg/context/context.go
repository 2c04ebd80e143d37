// Package context holds a session's rolling conversation/output history
// and the Compactor that keeps it under a token budget.
//
// OWNERSHIP:
//   - A History belongs to exactly one Session; it is never shared.
//   - A Compactor is stateless over the History it is given — callers
//     pass the History explicitly on every call so the compaction
//     algorithms stay pure and independently testable.
package context

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Strategy names the compaction algorithm a Compactor should apply.
type Strategy string

const (
	StrategyTruncate       Strategy = "truncate"
	StrategySummarize      Strategy = "summarize"
	StrategySmartSummarize Strategy = "smart_summarize"
	StrategySlidingWindow  Strategy = "sliding_window"
	StrategyHybrid        Strategy = "hybrid"
)

// Role identifies the speaker of a ContextMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContextMessage is one entry in a session's rolling history.
type ContextMessage struct {
	Role       Role
	Content    string
	TokenCount int
	Timestamp  time.Time
	Importance float64
	Preserve   bool
}

// Config governs compaction behavior for a single session.
type Config struct {
	MaxTokens              int
	ThresholdRatio         float64
	Strategy               Strategy
	PreserveSystemMessages bool
	PreserveRecentCount    int
	CompressionLevel       int
	SlidingWindowSize      int
	Estimator              Estimator
	Summarizer             Summarizer
}

// SetDefaults fills zero-valued fields with the package defaults.
func (c *Config) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 200_000
	}
	if c.ThresholdRatio == 0 {
		c.ThresholdRatio = 0.8
	}
	if c.Strategy == "" {
		c.Strategy = StrategyTruncate
	}
	if c.SlidingWindowSize == 0 {
		c.SlidingWindowSize = 50
	}
	if c.Estimator == nil {
		c.Estimator = HeuristicEstimator{}
	}
	if c.Summarizer == nil {
		c.Summarizer = concatSummarizer{}
	}
}

// History is the ordered sequence of ContextMessages for one session.
type History struct {
	mu       sync.RWMutex
	messages []ContextMessage
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Append adds a message, seeding Importance at 0.5 and TokenCount via the
// given estimator if not already set.
func (h *History) Append(msg ContextMessage, est Estimator) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.Importance == 0 {
		msg.Importance = 0.5
	}
	if msg.TokenCount == 0 {
		msg.TokenCount = est.EstimateTokens(msg.Content)
	}
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
}

// Messages returns a snapshot copy of the current message sequence.
func (h *History) Messages() []ContextMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ContextMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// Replace atomically swaps the message sequence, used by compaction
// strategies to install their result.
func (h *History) Replace(messages []ContextMessage) {
	h.mu.Lock()
	h.messages = messages
	h.mu.Unlock()
}

// TotalTokens sums TokenCount across all messages.
func (h *History) TotalTokens() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, m := range h.messages {
		total += m.TokenCount
	}
	return total
}

// Estimator estimates the token cost of a piece of text.
type Estimator interface {
	EstimateTokens(content string) int
}

// HeuristicEstimator implements the core's default ⌈len/4⌉ approximation.
type HeuristicEstimator struct{}

func (HeuristicEstimator) EstimateTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	return (len(content) + 3) / 4
}

// Summarizer reduces a set of messages to a single synthetic summary
// message. The summary text is opaque to the core; callers may wire a
// real LLM-backed summarizer or use the deterministic default below.
type Summarizer interface {
	Summarize(messages []ContextMessage) ContextMessage
}

// concatSummarizer is the deterministic default: it joins the content of
// every summarized message so compaction never depends on an external
// service being configured.
type concatSummarizer struct{}

func (concatSummarizer) Summarize(messages []ContextMessage) ContextMessage {
	var b strings.Builder
	b.WriteString("[summary of ")
	b.WriteString(itoa(len(messages)))
	b.WriteString(" messages] ")
	for i, m := range messages {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(m.Content)
	}
	return ContextMessage{
		Role:      RoleSystem,
		Content:   b.String(),
		Preserve:  true,
		Timestamp: time.Now(),
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// scoreImportance implements the SmartSummarize weighting: +0.3 for a
// system message, +0.2 for recency fraction, +0.1 for length>500, +0.1
// for a fenced code block, +0.1 for mentioning "error"; clamped to [0,1].
func scoreImportance(msg ContextMessage, index, total int) float64 {
	score := 0.0
	if msg.Role == RoleSystem {
		score += 0.3
	}
	if total > 1 {
		score += 0.2 * float64(index) / float64(total-1)
	}
	if len(msg.Content) > 500 {
		score += 0.1
	}
	if strings.Contains(msg.Content, "```") {
		score += 0.1
	}
	if strings.Contains(strings.ToLower(msg.Content), "error") {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// sortByTimestamp is a small helper used by strategies that need a stable
// chronological order before trimming.
func sortByTimestamp(messages []ContextMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}
