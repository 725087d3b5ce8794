package strategy

// SizeFraction maps a confluence score to the fractional allocation of total
// portfolio value, before any exposure capping. Monotone in score, bounded to
// [MinPositionFraction, MaxPositionFraction].
func SizeFraction(score float64, p Params) float64 {
	fraction := p.MinPositionFraction + score*(p.MaxPositionFraction-p.MinPositionFraction)
	if fraction < p.MinPositionFraction {
		fraction = p.MinPositionFraction
	}
	if fraction > p.MaxPositionFraction {
		fraction = p.MaxPositionFraction
	}
	return fraction
}

// FitExposure shrinks fraction so that invested plus new value stays within
// the exposure ceiling. Returns false when the fitted fraction falls below
// the minimum viable size: a dust entry is rejected rather than opened.
func FitExposure(fraction, investedValue, portfolioValue float64, p Params) (float64, bool) {
	if portfolioValue <= 0 {
		return 0, false
	}
	headroom := p.MaxExposureFraction - investedValue/portfolioValue
	if headroom <= 0 {
		return 0, false
	}
	if fraction > headroom {
		fraction = headroom
	}
	if fraction < p.MinViableFraction {
		return 0, false
	}
	return fraction, true
}
