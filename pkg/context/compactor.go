package context

// CompactionResult reports what a compaction pass did.
type CompactionResult struct {
	Compacted          bool
	OriginalTokens     int
	FinalTokens        int
	MessagesRemoved    int
	MessagesSummarized int
	BytesSaved         int
	CompressionRatio   float64
	StrategyUsed       Strategy
	Summary            string
}

// Compactor applies a Config's chosen strategy to a History when the
// token budget is exceeded.
type Compactor struct {
	cfg Config
}

// NewCompactor returns a Compactor with defaults applied.
func NewCompactor(cfg Config) *Compactor {
	cfg.SetDefaults()
	return &Compactor{cfg: cfg}
}

// Config returns the compactor's configuration.
func (c *Compactor) Config() Config {
	return c.cfg
}

// NeedsCompaction reports whether h's current token total has reached the
// configured threshold.
func (c *Compactor) NeedsCompaction(h *History) bool {
	threshold := int(float64(c.cfg.MaxTokens) * c.cfg.ThresholdRatio)
	return h.TotalTokens() >= threshold
}

// Compact applies the configured strategy to h in place and returns a
// report of what changed. A compaction that cannot reduce tokens to
// target still returns Compacted=true with FinalTokens above target; the
// caller may retry with a stricter strategy.
func (c *Compactor) Compact(h *History) CompactionResult {
	original := h.Messages()
	originalTokens := sumTokens(original)
	target := targetTokens(c.cfg)

	var result []ContextMessage
	var summary string
	var summarized int

	switch c.cfg.Strategy {
	case StrategySlidingWindow:
		result = slidingWindow(original, c.cfg)
	case StrategySummarize:
		result, summary, summarized = summarizeAll(original, c.cfg, target)
	case StrategySmartSummarize:
		result, summary, summarized = smartSummarize(original, c.cfg, target)
	case StrategyHybrid:
		windowed := slidingWindow(original, c.cfg)
		result, summary, summarized = smartSummarize(windowed, c.cfg, target)
	default: // StrategyTruncate
		result = truncate(original, c.cfg, target)
	}

	h.Replace(result)
	finalTokens := sumTokens(result)

	ratio := 0.0
	if originalTokens > 0 {
		ratio = 1 - float64(finalTokens)/float64(originalTokens)
	}

	return CompactionResult{
		Compacted:          len(result) != len(original) || finalTokens != originalTokens || originalTokens > target,
		OriginalTokens:      originalTokens,
		FinalTokens:         finalTokens,
		MessagesRemoved:     len(original) - len(result),
		MessagesSummarized:  summarized,
		BytesSaved:          bytesOf(original) - bytesOf(result),
		CompressionRatio:    ratio,
		StrategyUsed:        c.cfg.Strategy,
		Summary:             summary,
	}
}

func targetTokens(cfg Config) int {
	t := int(float64(cfg.MaxTokens) * (1 - cfg.ThresholdRatio))
	if t < 0 {
		t = 0
	}
	return t
}

func sumTokens(messages []ContextMessage) int {
	total := 0
	for _, m := range messages {
		total += m.TokenCount
	}
	return total
}

func bytesOf(messages []ContextMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	return total
}

// truncate removes the oldest non-preserved, non-recent message
// repeatedly until total tokens reach target or nothing removable
// remains.
func truncate(messages []ContextMessage, cfg Config, target int) []ContextMessage {
	out := append([]ContextMessage{}, messages...)
	recentCutoff := len(out) - cfg.PreserveRecentCount
	if recentCutoff < 0 {
		recentCutoff = 0
	}

	for sumTokens(out) > target {
		removed := false
		for i, m := range out {
			if i >= recentCutoff {
				continue
			}
			if m.Preserve || (cfg.PreserveSystemMessages && m.Role == RoleSystem) {
				continue
			}
			out = append(out[:i], out[i+1:]...)
			recentCutoff--
			removed = true
			break
		}
		if !removed {
			break
		}
	}
	return out
}

// slidingWindow keeps the newest Config.SlidingWindowSize messages,
// re-prepending any Preserve messages that fell outside the window.
func slidingWindow(messages []ContextMessage, cfg Config) []ContextMessage {
	window := cfg.SlidingWindowSize
	if window <= 0 || len(messages) <= window {
		return append([]ContextMessage{}, messages...)
	}

	cut := len(messages) - window
	evicted := messages[:cut]
	survivors := append([]ContextMessage{}, messages[cut:]...)

	var preserved []ContextMessage
	for _, m := range evicted {
		if m.Preserve {
			preserved = append(preserved, m)
		}
	}

	return append(preserved, survivors...)
}

// summarizeAll folds every message into a single synthetic summary
// produced by cfg.Summarizer.
func summarizeAll(messages []ContextMessage, cfg Config, target int) ([]ContextMessage, string, int) {
	if sumTokens(messages) <= target || len(messages) == 0 {
		return append([]ContextMessage{}, messages...), "", 0
	}
	summary := cfg.Summarizer.Summarize(messages)
	summary.TokenCount = cfg.Estimator.EstimateTokens(summary.Content)
	return []ContextMessage{summary}, summary.Content, len(messages)
}

// smartSummarize scores importance per spec weights, then summarizes
// every non-preserved message scoring below threshold into one message
// and keeps the high-score and preserved messages as they are.
func smartSummarize(messages []ContextMessage, cfg Config, target int) ([]ContextMessage, string, int) {
	if sumTokens(messages) <= target || len(messages) == 0 {
		return append([]ContextMessage{}, messages...), "", 0
	}

	const threshold = 0.5
	var high, low []ContextMessage
	for i, m := range messages {
		score := scoreImportance(m, i, len(messages))
		if score >= threshold || m.Preserve {
			high = append(high, m)
		} else {
			low = append(low, m)
		}
	}

	if len(low) == 0 {
		return append([]ContextMessage{}, messages...), "", 0
	}

	summary := cfg.Summarizer.Summarize(low)
	summary.TokenCount = cfg.Estimator.EstimateTokens(summary.Content)

	out := append([]ContextMessage{summary}, high...)
	sortByTimestamp(out)
	return out, summary.Content, len(low)
}
