package risk

// DrawdownSwitch is a kill switch that trips when equity falls to or below a
// fixed floor. The floor is computed once at session start; intra-session
// highs do not ratchet it.
type DrawdownSwitch struct {
	FloorUSD float64
}

// NewDrawdownSwitch derives the floor from starting equity and a maximum
// drawdown fraction (0.05 = 5%).
func NewDrawdownSwitch(startEquityUSD, maxDrawdown float64) *DrawdownSwitch {
	if maxDrawdown < 0 {
		maxDrawdown = 0
	}
	return &DrawdownSwitch{FloorUSD: startEquityUSD * (1 - maxDrawdown)}
}

// ShouldStop reports whether equity has breached the floor.
func (d *DrawdownSwitch) ShouldStop(equityUSD float64) bool {
	return equityUSD <= d.FloorUSD
}
