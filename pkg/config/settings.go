package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/rs/zerolog"
)

const settingsKey = "settings.json"

// Settings reads and writes user preferences through a data.Store.
type Settings struct {
	store data.Store
	log   zerolog.Logger
	mu    sync.Mutex
}

func NewSettings(store data.Store, log zerolog.Logger) *Settings {
	return &Settings{store: store, log: log}
}

// Load returns the stored settings. The defaults are written on first run and
// keys missing from the stored document are back-filled from the defaults.
func (s *Settings) Load() (data.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Settings) load() (data.Settings, error) {
	raw, ok, err := s.store.Get(settingsKey)
	if err != nil {
		return data.DefaultSettings(), err
	}
	if !ok {
		defaults := data.DefaultSettings()
		if err := s.save(defaults); err != nil {
			return defaults, err
		}
		return defaults, nil
	}

	// decoding over the defaults keeps them for absent keys
	settings := data.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.log.Warn().Err(err).Msg("settings file is corrupt, using defaults")
		return data.DefaultSettings(), nil
	}
	return settings, nil
}

func (s *Settings) Save(settings data.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(settings)
}

func (s *Settings) save(settings data.Settings) error {
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := s.store.Put(settingsKey, raw); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *Settings) update(fn func(*data.Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load()
	if err != nil {
		return err
	}
	fn(&settings)
	return s.save(settings)
}

func (s *Settings) SetDownloadVideos(v bool) error {
	return s.update(func(st *data.Settings) { st.DownloadVideos = v })
}

func (s *Settings) SetUseRomanizedMetadata(v bool) error {
	return s.update(func(st *data.Settings) { st.UseRomanizedMetadata = v })
}

// IncludeVideo reports the video preference, falling back to the default on
// read errors.
func (s *Settings) IncludeVideo() bool {
	settings, err := s.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read settings")
	}
	return settings.DownloadVideos
}
