package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"tycoon-engine/internal/model"
)

func activeProduct() model.Product {
	return model.Product{
		ID:                 1,
		CompanyID:          1,
		Name:               "app",
		BaseMonthlyRevenue: 3000,
		CurrentRevenue:     3000,
		Upkeep:             300,
		Status:             model.ProductActive,
		LaunchedAt:         epoch,
	}
}

func TestBugFactor(t *testing.T) {
	bal := testBalance()
	bugs := []model.ProductBug{
		{Severity: 2, Status: model.BugOpen},
		{Severity: 3, Status: model.BugFixing},
		{Severity: 5, Status: model.BugFixed},
	}
	assert.InDelta(t, 0.75, BugFactor(bugs, bal.Product), 1e-9)

	many := make([]model.ProductBug, 40)
	for i := range many {
		many[i] = model.ProductBug{Severity: 5, Status: model.BugOpen}
	}
	assert.Equal(t, bal.Product.MinFactor, BugFactor(many, bal.Product))
}

func TestAdvanceProduct(t *testing.T) {
	bal := testBalance()
	p := activeProduct()

	step := AdvanceProduct(p, nil, bal, Modifiers{})
	assert.InDelta(t, 3060, step.Product.CurrentRevenue, 1e-9)
	assert.Equal(t, int64(92), step.CashDelta) // (3060 - 300) / 30

	step = AdvanceProduct(p, nil, bal, Modifiers{model.CategoryRevenue: 0.5, model.CategoryCosts: 2})
	assert.InDelta(t, 1530, step.Effective, 1e-9)
	assert.Equal(t, int64(31), step.CashDelta) // (1530 - 600) / 30
}

func TestAdvanceProduct_Capped(t *testing.T) {
	bal := testBalance()
	p := activeProduct()
	p.CurrentRevenue = 8990

	step := AdvanceProduct(p, nil, bal, Modifiers{})
	assert.Equal(t, 9000.0, step.Product.CurrentRevenue)
}

func TestAdvanceProduct_InactiveEarnsNothing(t *testing.T) {
	bal := testBalance()
	for _, status := range []model.ProductStatus{model.ProductPaused, model.ProductRetired} {
		p := activeProduct()
		p.Status = status
		step := AdvanceProduct(p, nil, bal, Modifiers{})
		assert.Zero(t, step.CashDelta)
		assert.Equal(t, p, step.Product)
	}
}

func TestMaybeSpawnBug(t *testing.T) {
	bal := testBalance()

	_, ok := MaybeSpawnBug(&scriptedRand{floats: []float64{0.5}}, bal.Product)
	assert.False(t, ok)

	severity, ok := MaybeSpawnBug(&scriptedRand{floats: []float64{0.01}, ints: []int{3}}, bal.Product)
	assert.True(t, ok)
	assert.Equal(t, 4, severity)
}

// TestProductRevenueCapProperty checks revenue never exceeds the cap and
// the bug factor stays within [min_factor, 1].
func TestProductRevenueCapProperty(t *testing.T) {
	bal := testBalance()
	rapid.Check(t, func(t *rapid.T) {
		p := activeProduct()
		p.BaseMonthlyRevenue = rapid.Int64Range(1, 1_000_000).Draw(t, "base")
		p.CurrentRevenue = 0
		ceiling := float64(p.BaseMonthlyRevenue) * bal.Product.CapMultiplier

		var bugs []model.ProductBug
		for i := rapid.IntRange(0, 30).Draw(t, "bugs"); i > 0; i-- {
			bugs = append(bugs, model.ProductBug{
				Severity: rapid.IntRange(1, 5).Draw(t, "severity"),
				Status:   rapid.SampledFrom([]model.BugStatus{model.BugOpen, model.BugFixing, model.BugFixed}).Draw(t, "status"),
			})
		}
		factor := BugFactor(bugs, bal.Product)
		if factor < bal.Product.MinFactor || factor > 1 {
			t.Fatalf("bug factor %v out of range", factor)
		}

		for i := rapid.IntRange(1, 200).Draw(t, "ticks"); i > 0; i-- {
			step := AdvanceProduct(p, bugs, bal, Modifiers{})
			if step.Product.CurrentRevenue > ceiling+1e-6 {
				t.Fatalf("revenue %v above cap %v", step.Product.CurrentRevenue, ceiling)
			}
			if step.Product.CurrentRevenue < p.CurrentRevenue {
				t.Fatalf("revenue shrank %v -> %v", p.CurrentRevenue, step.Product.CurrentRevenue)
			}
			p = step.Product
		}
	})
}
