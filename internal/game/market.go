package game

import (
	"time"

	"tycoon-engine/internal/config"
	"tycoon-engine/internal/model"
)

// Modifiers maps a market category to its multiplier.
type Modifiers map[string]float64

// Get returns the multiplier of category, 1 when no event touches it.
func (m Modifiers) Get(category string) float64 {
	if v, ok := m[category]; ok {
		return v
	}
	return 1
}

// ModifiersAt composes the events active at now. Overlapping events on the
// same category multiply.
func ModifiersAt(events []model.MarketEvent, now time.Time) Modifiers {
	mods := Modifiers{}
	for _, ev := range events {
		if !ev.ActiveAt(now) {
			continue
		}
		mods[ev.Category] = mods.Get(ev.Category) * (1 + ev.Magnitude)
	}
	return mods
}

// MaybeCreateEvent rolls the per-tick event chance and, on success, draws a
// category and a magnitude in [min, max].
func MaybeCreateEvent(r Rand, b config.MarketBalance, now time.Time) (model.MarketEvent, bool) {
	if len(b.Categories) == 0 || r.Float64() >= b.EventChance {
		return model.MarketEvent{}, false
	}
	category := b.Categories[r.Intn(len(b.Categories))]
	magnitude := b.MinMagnitude + r.Float64()*(b.MaxMagnitude-b.MinMagnitude)
	return model.MarketEvent{
		Category:  category,
		Magnitude: magnitude,
		StartTime: now,
		EndTime:   now.Add(b.Duration),
	}, true
}

// Expired reports whether an event ended more than retention before now.
func Expired(ev model.MarketEvent, now time.Time, retention time.Duration) bool {
	return ev.EndTime.Add(retention).Before(now)
}
