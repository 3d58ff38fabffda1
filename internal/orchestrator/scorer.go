package orchestrator

import (
	"math"
	"strings"

	"github.com/modelmux/modelmux/pkg/ensemble"
)

// Composite score weights. They sum to 1 so the composite stays in [0,10].
const (
	weightQuality    = 0.4
	weightConfidence = 0.3
	weightHistory    = 0.2
	weightSpeed      = 0.1
)

// latencyCeilingMS is the latency at which the speed component bottoms out.
const latencyCeilingMS = 10000.0

// neutralConfidence is used when a provider exposes no confidence signal.
const neutralConfidence = 5.0

// minContentLength is the threshold below which content earns only the
// floor quality score.
const minContentLength = 10

// floorQuality is the quality score for non-empty content shorter than
// minContentLength. Nonzero so a successful response always carries a
// composite strictly above a failed one with the same history.
const floorQuality = 1.0

// scoreResponse computes the scored view of one model response. Pure and
// deterministic: the same response and stats always produce the same score.
// Failed responses zero every component except history, so under identical
// history they always land strictly below any successful response.
func scoreResponse(resp ensemble.ModelResponse, stats ensemble.ModelStats) ensemble.ResponseScore {
	s := ensemble.ResponseScore{
		Model:   resp.Model,
		History: historyScore(stats),
	}

	if !resp.Failed() {
		s.Quality = qualityScore(resp.Content)
		s.Confidence = confidenceScore(resp.Confidence)
		s.Speed = speedScore(resp.Latency.Milliseconds())
	}

	s.Composite = weightQuality*s.Quality +
		weightConfidence*s.Confidence +
		weightHistory*s.History +
		weightSpeed*s.Speed
	return s
}

// qualityScore is a length and structure heuristic in [0,10]. Empty content
// scores 0 and content under minContentLength characters the floor; anything
// longer starts at 5, grows with length up to 500 characters, and earns
// bonuses for multi-sentence prose and visible structure (paragraphs, lists,
// code blocks).
func qualityScore(content string) float64 {
	if content == "" {
		return 0
	}
	if len(content) < minContentLength {
		return floorQuality
	}

	score := 5 + 2.5*math.Min(float64(len(content))/500, 1)

	if sentenceCount(content) >= 2 {
		score += 1.25
	}
	if hasStructure(content) {
		score += 1.25
	}

	return math.Min(score, 10)
}

// confidenceScore maps a provider-reported raw confidence in [0,1] onto
// the 0-10 scale, falling back to a neutral midpoint when absent.
func confidenceScore(raw *float64) float64 {
	if raw == nil {
		return neutralConfidence
	}
	return 10 * clamp01(*raw)
}

// historyScore returns the model's running average score, or the neutral
// cold-start default for models with no recorded observations.
func historyScore(stats ensemble.ModelStats) float64 {
	if stats.Invocations == 0 {
		return ensemble.ColdStartScore
	}
	return stats.AvgScore
}

// speedScore rewards fast responses linearly: 10 at zero latency, 0 at the
// ceiling and beyond.
func speedScore(latencyMS int64) float64 {
	return 10 * clamp01(1-float64(latencyMS)/latencyCeilingMS)
}

// sentenceCount counts terminated sentences, capped at what callers need.
func sentenceCount(content string) int {
	count := 0
	for _, r := range content {
		switch r {
		case '.', '!', '?':
			count++
		}
	}
	return count
}

// hasStructure reports whether content shows paragraph breaks, list
// markers, or fenced code.
func hasStructure(content string) bool {
	return strings.Contains(content, "\n\n") ||
		strings.Contains(content, "\n- ") ||
		strings.Contains(content, "\n* ") ||
		strings.Contains(content, "```")
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
