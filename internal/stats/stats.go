// package stats derives per-track listening statistics from the curated playlists
package stats

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"golang.org/x/sync/errgroup"
)

// FavoriteSongBadge is the badge shown for membership in "Favorite Songs".
const FavoriteSongBadge = "Favorite Song"

// DefaultConcurrency bounds simultaneous playlist lookups.
const DefaultConcurrency = 4

// TrackLister fetches a playlist's ordered tracks.
type TrackLister interface {
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
}

// ReplayRank is the position of a track within a yearly recap.
type ReplayRank struct {
	Year     string `json:"year"`
	Rank     int    `json:"rank"`
	Playlist string `json:"playlist"`
}

// Stats is the result of [Aggregator.Compute].
//
// Omitted names the playlists whose lookup failed and therefore contributed nothing.
type Stats struct {
	Track          models.Track `json:"track"`
	ReplayRanks    []ReplayRank `json:"replay_ranks"`
	MixBadges      []string     `json:"mix_badges"`
	RecentlyPlayed bool         `json:"recently_played"`
	Omitted        []string     `json:"omitted,omitempty"`
}

// Aggregator computes [Stats] for a selected track.
//
// Playlist track lists that had to be fetched are memoized by playlist ID for the life of the Aggregator.
type Aggregator struct {
	lister      TrackLister
	logger      *log.Logger
	concurrency int

	mu   sync.Mutex
	memo map[string][]models.Track
}

// NewAggregator creates an aggregator. lister may be nil when every playlist arrives with its tracks.
func NewAggregator(lister TrackLister, logger *log.Logger, concurrency int) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		lister:      lister,
		logger:      logger,
		concurrency: concurrency,
		memo:        make(map[string][]models.Track),
	}
}

// Reset drops memoized track lists.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.memo)
}

type lookup struct {
	position int
	failed   bool
}

// Compute locates selected in every tracked playlist concurrently and collects replay ranks, mix badges
// and recently-played membership.
//
// A failing playlist is logged and listed in [Stats.Omitted]; the remaining playlists still contribute.
// Only a cancelled ctx fails the computation.
func (a *Aggregator) Compute(ctx context.Context, selected models.Track, playlists []models.Playlist, recent []models.Track) (*Stats, error) {
	tracked := make([]models.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if p.Tracked() {
			tracked = append(tracked, p)
		}
	}

	results := make([]lookup, len(tracked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, p := range tracked {
		g.Go(func() error {
			tracks, err := a.tracksFor(gctx, p)
			if err != nil {
				a.logger.Warn("playlist lookup failed", "playlist", p.Name, "id", p.ID, "error", err)
				results[i] = lookup{failed: true}
				return nil
			}
			results[i] = lookup{position: Position(tracks, selected)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &Stats{
		Track:          selected,
		ReplayRanks:    []ReplayRank{},
		MixBadges:      []string{},
		RecentlyPlayed: NewRecentSet(recent).Contains(selected),
	}

	for i, p := range tracked {
		res := results[i]
		if res.failed {
			stats.Omitted = append(stats.Omitted, p.Name)
			continue
		}
		if res.position == 0 {
			continue
		}

		switch p.Kind() {
		case models.ReplayPlaylist:
			stats.ReplayRanks = append(stats.ReplayRanks, ReplayRank{Year: p.Year(), Rank: res.position, Playlist: p.Name})
		case models.RotationPlaylist:
			stats.addBadge(models.HeavyRotationMixName)
		case models.FavoritesPlaylist:
			stats.addBadge(FavoriteSongBadge)
		}
	}

	slices.SortStableFunc(stats.ReplayRanks, func(x, y ReplayRank) int {
		return cmp.Compare(y.Year, x.Year)
	})

	return stats, nil
}

func (s *Stats) addBadge(badge string) {
	if !slices.Contains(s.MixBadges, badge) {
		s.MixBadges = append(s.MixBadges, badge)
	}
}

func (a *Aggregator) tracksFor(ctx context.Context, p models.Playlist) ([]models.Track, error) {
	if p.TracksLoaded {
		return p.Tracks, nil
	}

	a.mu.Lock()
	tracks, ok := a.memo[p.ID]
	a.mu.Unlock()
	if ok {
		return tracks, nil
	}

	if a.lister == nil {
		return nil, fmt.Errorf("%w: tracks for %s are not loaded", shared.ErrServiceUnavailable, p.Name)
	}

	tracks, err := a.lister.PlaylistTracks(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.memo[p.ID] = tracks
	a.mu.Unlock()
	return tracks, nil
}
