package ledger

// ewma tracks an exponentially weighted moving average. Used for the
// informational ScoreTrend column; the authoritative AvgScore uses a
// cumulative mean instead so it stays order-independent.
type ewma struct {
	alpha   float64
	mean    float64
	samples int64
}

func newEWMA(alpha float64) *ewma {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &ewma{alpha: alpha}
}

// update processes a new value and returns the smoothed mean.
func (e *ewma) update(value float64) float64 {
	e.samples++
	if e.samples == 1 {
		e.mean = value
		return e.mean
	}
	e.mean += e.alpha * (value - e.mean)
	return e.mean
}

// seed restores the smoothed mean from persisted state.
func (e *ewma) seed(mean float64, samples int64) {
	e.mean = mean
	e.samples = samples
}
