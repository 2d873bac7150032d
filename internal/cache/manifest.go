package cache

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// Dataset keys held by the [Manifest].
const (
	LibraryKey        = "library"
	PlaylistsKey      = "playlists"
	ArtistsKey        = "artists"
	RecentlyPlayedKey = "recently_played"
)

// ManifestKeys lists every dataset the manifest covers.
var ManifestKeys = []string{LibraryKey, PlaylistsKey, ArtistsKey, RecentlyPlayedKey}

// EntryStatus describes one manifest dataset.
type EntryStatus struct {
	Key       string        `json:"key"`
	Present   bool          `json:"present"`
	Fresh     bool          `json:"fresh"`
	WrittenAt time.Time     `json:"written_at,omitzero"`
	Age       time.Duration `json:"age"`
	Bytes     int           `json:"bytes"`
}

// Manifest treats the four datasets as one unit: it is fresh only when every dataset is.
type Manifest struct {
	cache *Cache
	ttl   time.Duration
}

// NewManifest creates a manifest over c. A non-positive ttl uses [DefaultTTL].
func NewManifest(c *Cache, ttl time.Duration) *Manifest {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manifest{cache: c, ttl: ttl}
}

// TTL returns the validity window.
func (m *Manifest) TTL() time.Duration { return m.ttl }

// IsFresh reports whether all four datasets are present and younger than the TTL.
func (m *Manifest) IsFresh() bool {
	return m.cache.AllValid(ManifestKeys, m.ttl)
}

// Load returns the cached snapshot when the manifest is fresh, and false otherwise.
func (m *Manifest) Load() (*models.Snapshot, bool, error) {
	if !m.IsFresh() {
		return nil, false, nil
	}

	var snap models.Snapshot
	targets := map[string]any{
		LibraryKey:        &snap.Library,
		PlaylistsKey:      &snap.Playlists,
		ArtistsKey:        &snap.Artists,
		RecentlyPlayedKey: &snap.RecentlyPlayed,
	}

	for _, key := range ManifestKeys {
		ok, err := m.cache.ReadIfValid(key, m.ttl, targets[key])
		if err != nil {
			return nil, false, err
		}
		// Expired between the freshness check and the read.
		if !ok {
			return nil, false, nil
		}
	}

	return &snap, true, nil
}

// Save writes all four datasets of snap.
func (m *Manifest) Save(snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot", shared.ErrMissingArgument)
	}

	return errors.Join(
		m.SaveDataset(LibraryKey, snap.Library),
		m.SaveDataset(PlaylistsKey, snap.Playlists),
		m.SaveDataset(ArtistsKey, snap.Artists),
		m.SaveDataset(RecentlyPlayedKey, snap.RecentlyPlayed),
	)
}

// SaveDataset writes a single dataset, leaving the others untouched.
func (m *Manifest) SaveDataset(key string, value any) error {
	if !slices.Contains(ManifestKeys, key) {
		return fmt.Errorf("%w: unknown dataset %q", shared.ErrInvalidArgument, key)
	}
	return m.cache.Write(key, value)
}

// Status reports presence, age and freshness of each dataset.
func (m *Manifest) Status() ([]EntryStatus, error) {
	now := m.cache.clock.Now()
	entries, err := m.cache.store.List()
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]models.CacheEntry, len(entries))
	for _, entry := range entries {
		byKey[entry.Key] = entry
	}

	statuses := make([]EntryStatus, 0, len(ManifestKeys))
	for _, key := range ManifestKeys {
		st := EntryStatus{Key: key}
		if entry, ok := byKey[key]; ok {
			st.Present = true
			st.WrittenAt = entry.WrittenAt
			st.Age = now.Sub(entry.WrittenAt)
			st.Fresh = st.Age < m.ttl
			st.Bytes = len(entry.Payload)
		}

		statuses = append(statuses, st)
	}

	return statuses, nil
}

// Clear removes all four datasets.
func (m *Manifest) Clear() error {
	return m.cache.store.Delete(ManifestKeys...)
}
