package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"tycoon-engine/internal/model"
)

func TestModifiersAt(t *testing.T) {
	events := []model.MarketEvent{
		{Category: model.CategoryRevenue, Magnitude: 0.2, StartTime: epoch, EndTime: epoch.Add(2 * time.Hour)},
		{Category: model.CategoryRevenue, Magnitude: -0.5, StartTime: epoch.Add(time.Hour), EndTime: epoch.Add(3 * time.Hour)},
		{Category: model.CategorySalary, Magnitude: 0.1, StartTime: epoch.Add(5 * time.Hour), EndTime: epoch.Add(6 * time.Hour)},
	}

	mods := ModifiersAt(events, epoch.Add(90*time.Minute))
	assert.InDelta(t, 0.6, mods.Get(model.CategoryRevenue), 1e-9)
	assert.Equal(t, 1.0, mods.Get(model.CategorySalary))
	assert.Equal(t, 1.0, mods.Get(model.CategoryCosts))

	// end is exclusive
	mods = ModifiersAt(events, epoch.Add(2*time.Hour))
	assert.InDelta(t, 0.5, mods.Get(model.CategoryRevenue), 1e-9)
}

func TestMaybeCreateEvent(t *testing.T) {
	bal := testBalance()

	_, ok := MaybeCreateEvent(&scriptedRand{floats: []float64{0.9}}, bal.Market, epoch)
	assert.False(t, ok)

	ev, ok := MaybeCreateEvent(&scriptedRand{floats: []float64{0.05, 0.5}, ints: []int{2}}, bal.Market, epoch)
	assert.True(t, ok)
	assert.Equal(t, bal.Market.Categories[2], ev.Category)
	assert.InDelta(t, 0.1, ev.Magnitude, 1e-9)
	assert.Equal(t, epoch, ev.StartTime)
	assert.Equal(t, epoch.Add(bal.Market.Duration), ev.EndTime)
}

func TestExpired(t *testing.T) {
	ev := model.MarketEvent{StartTime: epoch, EndTime: epoch.Add(time.Hour)}
	assert.False(t, Expired(ev, epoch.Add(25*time.Hour), 24*time.Hour))
	assert.True(t, Expired(ev, epoch.Add(25*time.Hour+time.Second), 24*time.Hour))
}

// TestModifiersOnlyActiveProperty checks that events outside their window
// never touch a modifier.
func TestModifiersOnlyActiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 10).Draw(t, "n")
		now := epoch.Add(time.Duration(rapid.IntRange(0, 48*60).Draw(t, "minute")) * time.Minute)
		var events []model.MarketEvent
		want := 1.0
		for i := 0; i < n; i++ {
			start := epoch.Add(time.Duration(rapid.IntRange(0, 48*60).Draw(t, "start")) * time.Minute)
			ev := model.MarketEvent{
				Category:  model.CategoryRevenue,
				Magnitude: rapid.Float64Range(-0.3, 0.5).Draw(t, "magnitude"),
				StartTime: start,
				EndTime:   start.Add(2 * time.Hour),
			}
			if ev.ActiveAt(now) {
				want *= 1 + ev.Magnitude
			}
			events = append(events, ev)
		}
		got := ModifiersAt(events, now).Get(model.CategoryRevenue)
		if diff := got - want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("modifier %v, want %v", got, want)
		}
	})
}
