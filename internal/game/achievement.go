package game

import (
	_ "embed"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"tycoon-engine/internal/model"
)

//go:embed achievements.yaml
var catalogYAML []byte

// ErrInvalidCatalog is returned for a malformed achievement catalog.
var ErrInvalidCatalog = errors.New("invalid achievement catalog")

// DefaultCatalog returns the built-in achievement catalog.
func DefaultCatalog() ([]model.Achievement, error) {
	return LoadCatalog(catalogYAML)
}

// LoadCatalog parses and validates a YAML achievement list.
func LoadCatalog(data []byte) ([]model.Achievement, error) {
	var catalog []model.Achievement
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	seen := make(map[string]bool, len(catalog))
	for _, a := range catalog {
		if a.Code == "" {
			return nil, fmt.Errorf("%w: empty code", ErrInvalidCatalog)
		}
		if seen[a.Code] {
			return nil, fmt.Errorf("%w: duplicate code %q", ErrInvalidCatalog, a.Code)
		}
		seen[a.Code] = true
		if _, ok := (model.UserStats{}).Value(a.Requirement); !ok {
			return nil, fmt.Errorf("%w: %s: unknown requirement %q", ErrInvalidCatalog, a.Code, a.Requirement)
		}
		if a.Threshold <= 0 {
			return nil, fmt.Errorf("%w: %s: threshold must be positive", ErrInvalidCatalog, a.Code)
		}
	}
	return catalog, nil
}

// AchievementProgress is one catalog entry scored against a user's stats.
type AchievementProgress struct {
	Achievement   model.Achievement
	Percent       float64
	Unlocked      bool
	NewlyUnlocked bool
}

// EvaluateAchievements scores every catalog entry. unlocked holds the codes
// already recorded for the user; those stay at 100 even if the stat fell
// since. Entries whose threshold is reached now are flagged NewlyUnlocked.
func EvaluateAchievements(stats model.UserStats, catalog []model.Achievement, unlocked map[string]bool) []AchievementProgress {
	out := make([]AchievementProgress, 0, len(catalog))
	for _, a := range catalog {
		p := AchievementProgress{Achievement: a}
		if unlocked[a.Code] {
			p.Percent = 100
			p.Unlocked = true
			out = append(out, p)
			continue
		}
		value, ok := stats.Value(a.Requirement)
		if !ok || a.Threshold <= 0 {
			out = append(out, p)
			continue
		}
		p.Percent = math.Max(0, math.Min(100, float64(value)/float64(a.Threshold)*100))
		if value >= a.Threshold {
			p.Percent = 100
			p.Unlocked = true
			p.NewlyUnlocked = true
		}
		out = append(out, p)
	}
	return out
}

// Newly filters progress down to the entries unlocked by this evaluation.
func Newly(progress []AchievementProgress) []model.Achievement {
	var out []model.Achievement
	for _, p := range progress {
		if p.NewlyUnlocked {
			out = append(out, p.Achievement)
		}
	}
	return out
}
