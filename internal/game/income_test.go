package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestOfflineIncome(t *testing.T) {
	limit := MaxOffline(8)

	step := OfflineIncome(epoch, epoch.Add(90*time.Second+500*time.Millisecond), 3, limit)
	assert.Equal(t, int64(270), step.Credit)
	assert.Zero(t, step.Discarded)

	step = OfflineIncome(epoch, epoch.Add(10*time.Hour), 2, limit)
	assert.Equal(t, int64(2*8*3600), step.Credit)
	assert.Equal(t, 2*time.Hour, step.Discarded)

	assert.Zero(t, OfflineIncome(epoch, epoch, 5, limit).Credit)
	assert.Zero(t, OfflineIncome(epoch, epoch.Add(-time.Hour), 5, limit).Credit)
}

// TestOfflineIncomeCapProperty checks the credit never exceeds the capped
// window and equals it exactly once elapsed passes the cap.
func TestOfflineIncomeCapProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hours := rapid.Float64Range(0.1, 48).Draw(t, "maxHours")
		limit := MaxOffline(hours)
		income := rapid.Int64Range(0, 10000).Draw(t, "autoIncome")
		elapsed := time.Duration(rapid.Int64Range(0, int64(96*time.Hour)).Draw(t, "elapsed"))

		step := OfflineIncome(epoch, epoch.Add(elapsed), income, limit)
		capped := income * int64(limit/time.Second)
		if step.Credit > capped {
			t.Fatalf("credit %d exceeds cap %d", step.Credit, capped)
		}
		if elapsed > limit && step.Credit != capped {
			t.Fatalf("over cap: credit %d, want %d", step.Credit, capped)
		}
		if step.Elapsed+step.Discarded != elapsed {
			t.Fatalf("elapsed %v + discarded %v != %v", step.Elapsed, step.Discarded, elapsed)
		}
	})
}
