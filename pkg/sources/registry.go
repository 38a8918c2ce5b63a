package sources

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kerbaras/adxport/pkg/data"
	"github.com/rs/zerolog"
)

const sourcesKey = "sources.json"

// DefaultSources ships with the app and seeds sources.json on first run.
func DefaultSources() []data.Source {
	return []data.Source{
		{
			ID:      "majdata",
			Name:    "Majdata.net",
			BaseURL: "https://majdata.net/api3/api/maichart",
			Enabled: true,
		},
	}
}

// SourcePatch carries the fields to change in Update. Nil fields are kept.
type SourcePatch struct {
	Name    *string
	BaseURL *string
	Enabled *bool
}

type RegistryOption func(*Registry)

func WithRegistryLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// Registry is the persisted list of catalog sources.
type Registry struct {
	store data.Store
	log   zerolog.Logger
	mu    sync.Mutex
}

func NewRegistry(store data.Store, opts ...RegistryOption) *Registry {
	r := &Registry{store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the stored sources, writing the defaults when none are stored.
func (r *Registry) Load() ([]data.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Registry) load() ([]data.Source, error) {
	raw, ok, err := r.store.Get(sourcesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}
	if !ok {
		defaults := DefaultSources()
		if err := r.save(defaults); err != nil {
			r.log.Warn().Err(err).Msg("failed to seed default sources")
		}
		return defaults, nil
	}

	var sources []data.Source
	if err := json.Unmarshal(raw, &sources); err != nil {
		r.log.Error().Err(err).Msg("error loading sources, using defaults")
		return DefaultSources(), nil
	}
	return sources, nil
}

// Save replaces the stored list.
func (r *Registry) Save(sources []data.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(sources)
}

func (r *Registry) save(sources []data.Source) error {
	if sources == nil {
		sources = []data.Source{}
	}
	raw, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return err
	}
	if err := r.store.Put(sourcesKey, raw); err != nil {
		return fmt.Errorf("failed to save sources: %w", err)
	}
	return nil
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// Add appends a source. The id must be unique.
func (r *Registry) Add(source data.Source) error {
	source.ID = strings.TrimSpace(source.ID)
	source.BaseURL = normalizeBaseURL(source.BaseURL)
	if source.ID == "" {
		return fmt.Errorf("%w: id is required", errInvalidSource)
	}
	if source.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", errInvalidSource)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sources, err := r.load()
	if err != nil {
		return err
	}
	for _, s := range sources {
		if s.ID == source.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateID, source.ID)
		}
	}

	return r.save(append(sources, source))
}

// Update merges patch into the source with the given id. The id never changes.
func (r *Registry) Update(id string, patch SourcePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources, err := r.load()
	if err != nil {
		return err
	}

	index := -1
	for i, s := range sources {
		if s.ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	if patch.Name != nil {
		sources[index].Name = *patch.Name
	}
	if patch.BaseURL != nil {
		sources[index].BaseURL = normalizeBaseURL(*patch.BaseURL)
	}
	if patch.Enabled != nil {
		sources[index].Enabled = *patch.Enabled
	}

	return r.save(sources)
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources, err := r.load()
	if err != nil {
		return err
	}

	filtered := make([]data.Source, 0, len(sources))
	for _, s := range sources {
		if s.ID != id {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == len(sources) {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return r.save(filtered)
}

// Get looks up a source by id.
func (r *Registry) Get(id string) (data.Source, bool, error) {
	sources, err := r.Load()
	if err != nil {
		return data.Source{}, false, err
	}
	for _, s := range sources {
		if s.ID == id {
			return s, true, nil
		}
	}
	return data.Source{}, false, nil
}

// Enabled returns the enabled sources in stored order.
func (r *Registry) Enabled() ([]data.Source, error) {
	sources, err := r.Load()
	if err != nil {
		return nil, err
	}
	enabled := make([]data.Source, 0, len(sources))
	for _, s := range sources {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

func (r *Registry) EnabledCount() (int, error) {
	enabled, err := r.Enabled()
	return len(enabled), err
}
