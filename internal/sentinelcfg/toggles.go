// Package sentinelcfg owns the LIVE_STATE toggle document: a small set of
// booleans and per-gate numeric overrides that operators flip without a
// restart. It loads the document with viper (YAML/JSON/env, consistent
// with the defaults-plus-override idiom used elsewhere for config) and
// hot-reloads it on change via fsnotify.
package sentinelcfg

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Toggles is the decoded shape of LIVE_STATE.json/.yaml. Fields not
// present in the on-disk document keep their zero value; unrecognised
// keys in the document are silently dropped by viper's decode, matching
// the "unrecognised toggles are ignored" contract.
type Toggles struct {
	MentorHindsightGate bool `mapstructure:"mentor_hindsight_gate"`
	MentorAll           bool `mapstructure:"mentor_all"`
	MentorAnalytics     bool `mapstructure:"mentor_analytics"`
	TGMirrorMessages    bool `mapstructure:"tg_mirror_messages"`

	GateTuneOverrides map[string]float64 `mapstructure:"gate_tune_overrides"`
}

// DefaultToggles returns every toggle in its conservative off position.
func DefaultToggles() Toggles {
	return Toggles{GateTuneOverrides: map[string]float64{}}
}

// Validate rejects a document with an out-of-range override. Overrides
// are free-form per-gate numbers; the only universal constraint is that
// they are finite and non-negative, since every current consumer treats
// them as a threshold or count.
func (t Toggles) Validate() error {
	for name, v := range t.GateTuneOverrides {
		if v < 0 {
			return fmt.Errorf("sentinelcfg: gate_tune_overrides[%q] must be >= 0 (got %v)", name, v)
		}
	}
	return nil
}

// Store owns one LIVE_STATE document, refreshed in place on disk changes.
// Reads are lock-free snapshots; writes come only from Reload.
type Store struct {
	v    *viper.Viper
	path string

	mu      sync.RWMutex
	current Toggles

	onChange func(Toggles)
}

// Load reads path (any viper-supported format: yaml, json, toml) and
// starts watching it for changes. A missing file is not an error: the
// store falls back to DefaultToggles and starts watching the path so a
// later-created file is picked up.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	def := DefaultToggles()
	v.SetDefault("mentor_hindsight_gate", def.MentorHindsightGate)
	v.SetDefault("mentor_all", def.MentorAll)
	v.SetDefault("mentor_analytics", def.MentorAnalytics)
	v.SetDefault("tg_mirror_messages", def.TGMirrorMessages)
	v.SetDefault("gate_tune_overrides", def.GateTuneOverrides)

	s := &Store{v: v, path: path, current: def}

	if err := s.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(fsnotify.Event) {
		_ = s.reload()
	})
	v.WatchConfig()

	return s, nil
}

func (s *Store) reload() error {
	err := s.v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("sentinelcfg: reading %s: %w", s.path, err)
		}
	}

	var next Toggles
	if err := s.v.Unmarshal(&next); err != nil {
		return fmt.Errorf("sentinelcfg: decoding %s: %w", s.path, err)
	}
	if next.GateTuneOverrides == nil {
		next.GateTuneOverrides = map[string]float64{}
	}
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(next)
	}
	return nil
}

// OnChange registers a callback invoked after every successful reload.
func (s *Store) OnChange(fn func(Toggles)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Snapshot returns the current toggle document.
func (s *Store) Snapshot() Toggles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LiveToggle reports one named boolean toggle, matching the shared
// get_live_toggle(name) helper gates consult.
func (s *Store) LiveToggle(name string) bool {
	t := s.Snapshot()
	switch name {
	case "mentor_hindsight_gate":
		return t.MentorHindsightGate
	case "mentor_all":
		return t.MentorAll
	case "mentor_analytics":
		return t.MentorAnalytics
	case "tg_mirror_messages":
		return t.TGMirrorMessages
	default:
		return false
	}
}

// TuneOverride returns the configured gate-tune override for key, or def
// if none is set.
func (s *Store) TuneOverride(key string, def float64) float64 {
	t := s.Snapshot()
	if v, ok := t.GateTuneOverrides[key]; ok {
		return v
	}
	return def
}
