package game

import "time"

// IncomeStep is the result of an offline catch-up.
type IncomeStep struct {
	Elapsed   time.Duration // credited
	Discarded time.Duration // beyond the offline cap
	Credit    int64
}

// OfflineIncome credits autoIncome per whole second between lastActive and
// now, capped at maxOffline. A clock at or before lastActive yields nothing.
func OfflineIncome(lastActive, now time.Time, autoIncome int64, maxOffline time.Duration) IncomeStep {
	if !now.After(lastActive) {
		return IncomeStep{}
	}
	elapsed := now.Sub(lastActive)
	var step IncomeStep
	if elapsed > maxOffline {
		step.Discarded = elapsed - maxOffline
		elapsed = maxOffline
	}
	step.Elapsed = elapsed
	if autoIncome > 0 {
		step.Credit = autoIncome * int64(elapsed/time.Second)
	}
	return step
}

// MaxOffline converts the configured hour cap to a duration.
func MaxOffline(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
