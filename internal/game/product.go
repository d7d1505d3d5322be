package game

import (
	"math"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/model"
)

// ProductStep is the outcome of one revenue tick of a product.
type ProductStep struct {
	Product   model.Product
	Effective float64 // monthly revenue after bugs and market
	CashDelta int64
}

// BugFactor is the revenue multiplier of a product's unfixed bugs.
func BugFactor(bugs []model.ProductBug, b config.ProductBalance) float64 {
	var severity int
	for _, bug := range bugs {
		if bug.Status.Degrading() {
			severity += bug.Severity
		}
	}
	return math.Max(b.MinFactor, 1-float64(severity)*b.PenaltyPerSeverity)
}

// AdvanceProduct grows an active product's revenue toward its cap and
// returns the cash it earns this tick net of upkeep. Paused and retired
// products earn and cost nothing.
func AdvanceProduct(p model.Product, bugs []model.ProductBug, bal *config.Balance, mods Modifiers) ProductStep {
	if p.Status != model.ProductActive {
		return ProductStep{Product: p}
	}
	b := bal.Product
	base := float64(p.BaseMonthlyRevenue)
	if p.CurrentRevenue <= 0 {
		p.CurrentRevenue = base
	} else {
		p.CurrentRevenue = math.Min(p.CurrentRevenue*(1+b.GrowthRate), base*b.CapMultiplier)
	}

	effective := p.CurrentRevenue * BugFactor(bugs, b) * mods.Get(model.CategoryRevenue)
	upkeep := float64(p.Upkeep) * mods.Get(model.CategoryCosts)
	delta := (effective - upkeep) / float64(b.TicksPerMonth)

	return ProductStep{
		Product:   p,
		Effective: effective,
		CashDelta: int64(math.Round(delta)),
	}
}

// MaybeSpawnBug rolls the per-tick bug chance for one active product.
func MaybeSpawnBug(r Rand, b config.ProductBalance) (int, bool) {
	if r.Float64() >= b.BugSpawnChance {
		return 0, false
	}
	return b.MinSeverity + r.Intn(b.MaxSeverity-b.MinSeverity+1), true
}
