package context

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHistory(n int, tokensEach int) *History {
	h := NewHistory()
	est := HeuristicEstimator{}
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		content := make([]byte, tokensEach*4)
		for j := range content {
			content[j] = 'x'
		}
		h.Append(ContextMessage{
			Role:      RoleUser,
			Content:   string(content),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}, est)
	}
	return h
}

func TestCompactor_NeedsCompaction(t *testing.T) {
	cfg := Config{MaxTokens: 1000, ThresholdRatio: 0.8}
	c := NewCompactor(cfg)

	t.Run("below threshold", func(t *testing.T) {
		h := buildHistory(5, 10) // 50 tokens
		assert.False(t, c.NeedsCompaction(h))
	})

	t.Run("at or above threshold", func(t *testing.T) {
		h := buildHistory(5, 200) // 1000 tokens
		assert.True(t, c.NeedsCompaction(h))
	})
}

func TestCompactor_Truncate(t *testing.T) {
	cfg := Config{MaxTokens: 100, ThresholdRatio: 0.5, Strategy: StrategyTruncate, PreserveRecentCount: 1}
	c := NewCompactor(cfg)
	h := buildHistory(10, 10) // 100 tokens total, target = 50

	result := c.Compact(h)
	require.True(t, result.Compacted)
	assert.LessOrEqual(t, result.FinalTokens, 60)
	assert.Equal(t, StrategyTruncate, result.StrategyUsed)
	assert.Positive(t, result.MessagesRemoved)
}

func TestCompactor_Truncate_PreservesFlaggedMessages(t *testing.T) {
	cfg := Config{MaxTokens: 40, ThresholdRatio: 0.5, Strategy: StrategyTruncate}
	c := NewCompactor(cfg)
	h := NewHistory()
	est := HeuristicEstimator{}
	h.Append(ContextMessage{Role: RoleSystem, Content: "keep me please this is important and long enough", Preserve: true}, est)
	for i := 0; i < 5; i++ {
		h.Append(ContextMessage{Role: RoleUser, Content: "filler filler filler filler filler filler"}, est)
	}

	c.Compact(h)
	found := false
	for _, m := range h.Messages() {
		if m.Preserve {
			found = true
		}
	}
	assert.True(t, found, "preserved message must survive truncation")
}

func TestCompactor_SlidingWindow(t *testing.T) {
	cfg := Config{MaxTokens: 1000, ThresholdRatio: 0.1, Strategy: StrategySlidingWindow, SlidingWindowSize: 3}
	c := NewCompactor(cfg)
	h := buildHistory(10, 5)

	c.Compact(h)
	assert.LessOrEqual(t, len(h.Messages()), 3)
}

func TestCompactor_SmartSummarize(t *testing.T) {
	cfg := Config{MaxTokens: 50, ThresholdRatio: 0.5, Strategy: StrategySmartSummarize}
	c := NewCompactor(cfg)
	h := NewHistory()
	est := HeuristicEstimator{}
	h.Append(ContextMessage{Role: RoleSystem, Content: "system prompt"}, est)
	for i := 0; i < 8; i++ {
		h.Append(ContextMessage{Role: RoleUser, Content: "some filler conversation text that adds up over time"}, est)
	}

	result := c.Compact(h)
	assert.Equal(t, StrategySmartSummarize, result.StrategyUsed)
	if result.MessagesSummarized > 0 {
		assert.NotEmpty(t, result.Summary)
	}
}

func TestCompactor_Hybrid(t *testing.T) {
	cfg := Config{MaxTokens: 50, ThresholdRatio: 0.5, Strategy: StrategyHybrid, SlidingWindowSize: 5}
	c := NewCompactor(cfg)
	h := buildHistory(20, 10)

	result := c.Compact(h)
	assert.Equal(t, StrategyHybrid, result.StrategyUsed)
	assert.LessOrEqual(t, len(h.Messages()), 20)
}

func TestHeuristicEstimator(t *testing.T) {
	e := HeuristicEstimator{}
	assert.Equal(t, 0, e.EstimateTokens(""))
	assert.Equal(t, 1, e.EstimateTokens("ab"))
	assert.Equal(t, 3, e.EstimateTokens("0123456789"))
}

func TestScoreImportance(t *testing.T) {
	t.Run("system message scores higher", func(t *testing.T) {
		sys := scoreImportance(ContextMessage{Role: RoleSystem, Content: "hi"}, 0, 10)
		user := scoreImportance(ContextMessage{Role: RoleUser, Content: "hi"}, 0, 10)
		assert.Greater(t, sys, user)
	})

	t.Run("score is clamped to 1", func(t *testing.T) {
		msg := ContextMessage{
			Role:    RoleSystem,
			Content: "```code```\n" + string(make([]byte, 600)) + " error",
		}
		score := scoreImportance(msg, 9, 10)
		assert.LessOrEqual(t, score, 1.0)
	})
}
