package orchestrator

import (
	"github.com/modelmux/modelmux/pkg/ensemble"
)

// selectWinner picks the highest-composite non-failed response. Ties break
// by lower latency, then by the catalog's fixed priority order, so the
// outcome is deterministic across repeated runs on the same inputs.
// Returns ErrNoViableResponse when every response failed.
func selectWinner(responses []ensemble.ModelResponse, scores map[string]ensemble.ResponseScore, priority map[string]int) (ensemble.ModelResponse, error) {
	var (
		winner ensemble.ModelResponse
		found  bool
	)

	for _, r := range responses {
		if r.Failed() {
			continue
		}
		if !found {
			winner = r
			found = true
			continue
		}
		if better(r, winner, scores, priority) {
			winner = r
		}
	}

	if !found {
		return ensemble.ModelResponse{}, ensemble.ErrNoViableResponse
	}
	return winner, nil
}

// firstViable picks the non-failed response from the highest-priority
// catalog model, ignoring scores entirely. This is the selection rule when
// ensemble comparison is off or the candidate set is too small to compare.
// Returns ErrNoViableResponse when every response failed.
func firstViable(responses []ensemble.ModelResponse, priority map[string]int) (ensemble.ModelResponse, error) {
	var (
		winner ensemble.ModelResponse
		found  bool
	)

	for _, r := range responses {
		if r.Failed() {
			continue
		}
		if !found || priority[r.Model] < priority[winner.Model] {
			winner = r
			found = true
		}
	}

	if !found {
		return ensemble.ModelResponse{}, ensemble.ErrNoViableResponse
	}
	return winner, nil
}

// better reports whether candidate beats incumbent.
func better(candidate, incumbent ensemble.ModelResponse, scores map[string]ensemble.ResponseScore, priority map[string]int) bool {
	cs, is := scores[candidate.Model].Composite, scores[incumbent.Model].Composite
	if cs != is {
		return cs > is
	}
	if candidate.Latency != incumbent.Latency {
		return candidate.Latency < incumbent.Latency
	}
	return priority[candidate.Model] < priority[incumbent.Model]
}
