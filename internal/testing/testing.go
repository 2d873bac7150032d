// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
)

// FakeLibrary is a test double for services.Library backed by in-memory data.
//
// Err fails every call; PlaylistErrs fails PlaylistTracks for individual playlist IDs.
type FakeLibrary struct {
	Songs           []models.Track
	Playlists       []models.Playlist
	Recent          []models.Track
	Recs            []models.Recommendation
	Err             error
	PlaylistErrs    map[string]error
	PlaylistBlocker chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func (f *FakeLibrary) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// Calls returns how many times the named method ran.
func (f *FakeLibrary) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *FakeLibrary) LibrarySongs(ctx context.Context) ([]models.Track, error) {
	f.record("LibrarySongs")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Songs, nil
}

// LibraryPlaylists returns the playlists without their tracks.
func (f *FakeLibrary) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	f.record("LibraryPlaylists")
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]models.Playlist, 0, len(f.Playlists))
	for _, p := range f.Playlists {
		out = append(out, models.Playlist{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

func (f *FakeLibrary) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	f.record("PlaylistTracks:" + playlistID)
	if f.PlaylistBlocker != nil {
		select {
		case <-f.PlaylistBlocker:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if err := f.PlaylistErrs[playlistID]; err != nil {
		return nil, err
	}
	for _, p := range f.Playlists {
		if p.ID == playlistID {
			return p.Tracks, nil
		}
	}
	return []models.Track{}, nil
}

func (f *FakeLibrary) RecentlyPlayed(ctx context.Context) ([]models.Track, error) {
	f.record("RecentlyPlayed")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Recent, nil
}

func (f *FakeLibrary) Recommendations(ctx context.Context, ids []string) ([]models.Recommendation, error) {
	f.record("Recommendations")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Recs, nil
}

func (f *FakeLibrary) Name() string { return "fake" }

// NewTrack builds a library track with the fields identity matching reads.
func NewTrack(id, name, artist string, durationMillis, trackNumber int) models.Track {
	return models.Track{
		ID:             id,
		Name:           name,
		ArtistName:     artist,
		DurationMillis: durationMillis,
		TrackNumber:    trackNumber,
	}
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
