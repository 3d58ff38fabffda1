package orchestrator

import (
	"sort"
	"strings"

	"github.com/modelmux/modelmux/pkg/ensemble"
	"github.com/modelmux/modelmux/pkg/roles"
)

// Query categories recognized by the router.
const (
	categoryCoding       = "coding"
	categoryCreative     = "creative"
	categoryTechnical    = "technical"
	categoryResearch     = "research"
	categoryMultilingual = "multilingual"
	categoryMathematical = "mathematical"
	categoryGeneral      = "general"
)

// categoryKeywords maps each category to the lowercase keywords that vote
// for it. The category with the most keyword hits wins; no hits means
// general.
var categoryKeywords = map[string][]string{
	categoryCoding: {
		"code", "function", "debug", "program", "script", "api",
		"compile", "refactor", "bug", "implement", "algorithm",
	},
	categoryCreative: {
		"story", "poem", "write", "creative", "imagine", "fiction",
		"song", "character", "plot",
	},
	categoryTechnical: {
		"explain", "architecture", "design", "system", "protocol",
		"configure", "deploy", "infrastructure",
	},
	categoryResearch: {
		"research", "compare", "analyze", "summarize", "sources",
		"study", "evidence", "latest",
	},
	categoryMultilingual: {
		"translate", "translation", "language", "spanish", "french",
		"german", "chinese", "japanese",
	},
	categoryMathematical: {
		"calculate", "math", "equation", "solve", "proof",
		"derivative", "integral", "probability",
	},
}

// categorize assigns a query text to the category with the most keyword
// matches, defaulting to general.
func categorize(text string) string {
	lower := strings.ToLower(text)

	best, bestHits := categoryGeneral, 0
	// Fixed iteration order keeps categorization deterministic on ties.
	for _, category := range []string{
		categoryCoding, categoryCreative, categoryTechnical,
		categoryResearch, categoryMultilingual, categoryMathematical,
	} {
		hits := 0
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = category, hits
		}
	}
	return best
}

// Router ranking weights: specialization fit dominates, historical
// performance refines.
const (
	routeWeightSpecialization = 0.7
	routeWeightPerformance    = 0.3

	// specializationMiss is the base fit for models that do not list the
	// query category, so strong performers stay in contention.
	specializationMiss = 0.25
)

// routeModels picks up to maxModels catalog models for a query the caller
// left model-less, ranking by specialization fit and ledger history.
func routeModels(q ensemble.Query, catalog []roles.ModelInfo, stats func(model string) ensemble.ModelStats, maxModels int) []string {
	category := categorize(q.Text)

	type ranked struct {
		id       string
		score    float64
		priority int
	}

	candidates := make([]ranked, 0, len(catalog))
	for _, info := range catalog {
		fit := specializationMiss
		for _, spec := range info.Specializations {
			if spec == category {
				fit = 1
				break
			}
		}

		st := stats(info.ID)
		perf := ensemble.ColdStartScore / 10
		if st.Invocations > 0 {
			perf = st.AvgScore / 10
		}

		candidates = append(candidates, ranked{
			id:       info.ID,
			score:    routeWeightSpecialization*fit + routeWeightPerformance*perf,
			priority: info.Priority,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].priority < candidates[j].priority
	})

	if maxModels <= 0 {
		maxModels = DefaultConfig().MaxModels
	}
	if len(candidates) > maxModels {
		candidates = candidates[:maxModels]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids
}
