package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// BalanceSource hands out the current balance table. Job kinds read it once
// at the start of a run so a reload never splits a run across two versions.
type BalanceSource struct {
	current atomic.Pointer[Balance]
}

// NewBalanceSource creates a source holding b.
func NewBalanceSource(b *Balance) *BalanceSource {
	s := &BalanceSource{}
	s.Store(b)
	return s
}

// Balance returns the current table.
func (s *BalanceSource) Balance() *Balance {
	return s.current.Load()
}

// Store swaps in a new table.
func (s *BalanceSource) Store(b *Balance) {
	if b == nil {
		return
	}
	s.current.Store(b)
}

// Watch reloads the balance section whenever the config file changes.
// A file that fails to decode keeps the previous table in place.
func Watch(v *viper.Viper, src *BalanceSource) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Error().Err(err).Str("file", e.Name).Msg("Balance reload failed, keeping previous table")
			return
		}
		prev := src.Balance()
		src.Store(&cfg.Balance)
		log.Info().
			Str("file", e.Name).
			Int("previous_version", prev.Version).
			Int("version", cfg.Balance.Version).
			Msg("Balance table reloaded")
	})
	v.WatchConfig()
}
