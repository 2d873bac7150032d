package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/palette"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/stats"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SelectionState is the lifecycle state of a [Selector].
type SelectionState int

const (
	Idle SelectionState = iota
	Loading
	Ready
)

func (s SelectionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return ""
	}
}

// StatsComputer computes stats for a selected track. Implemented by [stats.Aggregator].
type StatsComputer interface {
	Compute(ctx context.Context, selected models.Track, playlists []models.Playlist, recent []models.Track) (*stats.Stats, error)
}

type resetter interface {
	Reset()
}

// GradientSource derives an artwork gradient for a track. Implemented by [palette.Extractor].
type GradientSource interface {
	Gradient(ctx context.Context, track models.Track) (*palette.Gradient, error)
}

// Selection is a point-in-time view of a [Selector].
type Selection struct {
	State    SelectionState
	Track    *models.Track
	Stats    *stats.Stats
	Gradient *palette.Gradient
	Err      error
}

// Outcome is the result of a [Job] handed back to [Selector.Finish].
type Outcome struct {
	Token       string
	Track       models.Track
	Stats       *stats.Stats
	Gradient    *palette.Gradient
	StatsErr    error
	GradientErr error
}

// Selector owns the current track selection.
//
// Each selection carries a token; outcomes of superseded selections are discarded on [Selector.Finish].
// Gradients are memoized by track identity for the life of the Selector.
type Selector struct {
	stats     StatsComputer
	gradients GradientSource
	logger    *log.Logger
	flight    singleflight.Group

	mu        sync.Mutex
	state     SelectionState
	token     string
	track     *models.Track
	result    *stats.Stats
	gradient  *palette.Gradient
	err       error
	playlists []models.Playlist
	recent    []models.Track
	memo      map[string]*palette.Gradient
}

// NewSelector creates a Selector. gradients may be nil to skip artwork colors.
func NewSelector(computer StatsComputer, gradients GradientSource, logger *log.Logger) *Selector {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Selector{
		stats:     computer,
		gradients: gradients,
		logger:    logger,
		memo:      make(map[string]*palette.Gradient),
	}
}

// SetLibrary replaces the playlists and recently played tracks that later selections are computed against.
// A computer that memoizes playlist contents (see [stats.Aggregator.Reset]) is reset so reloads are not served stale.
func (s *Selector) SetLibrary(playlists []models.Playlist, recent []models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists = playlists
	s.recent = recent
	if r, ok := s.stats.(resetter); ok {
		r.Reset()
	}
}

// Begin selects track and moves to Loading.
//
// Returns nil when track is the library item already selected; nothing changes in that case. Another
// item sharing the name and artist (a live cut, a single) is a new selection.
// The previous gradient stays visible until the new one is ready.
func (s *Selector) Begin(track models.Track) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.track != nil && s.track.ID == track.ID && s.track.Key() == track.Key() {
		return nil
	}

	s.token = shared.GenerateID()
	s.track = &track
	s.state = Loading
	s.result = nil
	s.err = nil

	return &Job{
		Token:     s.token,
		Track:     track,
		playlists: s.playlists,
		recent:    s.recent,
		selector:  s,
	}
}

// Finish applies out if it belongs to the current selection and reports whether it did.
//
// A stats failure is recorded as the selection error. A gradient failure is logged and the previous
// gradient is kept.
func (s *Selector) Finish(out Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out.Token != s.token {
		s.logger.Debug("discarding stale selection", "track", out.Track.Name)
		return false
	}

	if out.StatsErr != nil {
		s.logger.Error("stats computation failed", "track", out.Track.Name, "error", out.StatsErr)
		s.err = out.StatsErr
	} else {
		s.result = out.Stats
	}

	switch {
	case out.GradientErr != nil:
		s.logger.Warn("palette extraction failed", "track", out.Track.Name, "error", out.GradientErr)
	case out.Gradient != nil:
		s.gradient = out.Gradient
	}

	s.state = Ready
	return true
}

// Clear drops the selection and returns to Idle.
func (s *Selector) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.track = nil
	s.result = nil
	s.gradient = nil
	s.err = nil
	s.state = Idle
}

// Current returns a view of the selection.
func (s *Selector) Current() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Selection{State: s.state, Track: s.track, Stats: s.result, Gradient: s.gradient, Err: s.err}
}

func (s *Selector) cachedGradient(key string) (*palette.Gradient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.memo[key]
	return g, ok
}

// gradientFor extracts at most once per identity, sharing in-flight extractions between jobs.
func (s *Selector) gradientFor(ctx context.Context, track models.Track) (*palette.Gradient, error) {
	key := track.Key()
	if g, ok := s.cachedGradient(key); ok {
		return g, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		if g, ok := s.cachedGradient(key); ok {
			return g, nil
		}
		g, err := s.gradients.Gradient(ctx, track)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.memo[key] = g
		s.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*palette.Gradient), nil
}

// Job is the work for one selection.
type Job struct {
	Token string
	Track models.Track

	playlists []models.Playlist
	recent    []models.Track
	selector  *Selector
}

// Run computes stats and the gradient concurrently. It never fails; errors travel in the [Outcome].
func (j *Job) Run(ctx context.Context) Outcome {
	out := Outcome{Token: j.Token, Track: j.Track}
	s := j.selector

	var g errgroup.Group
	g.Go(func() error {
		if s.stats == nil {
			out.StatsErr = shared.ErrServiceUnavailable
			return nil
		}
		out.Stats, out.StatsErr = s.stats.Compute(ctx, j.Track, j.playlists, j.recent)
		return nil
	})

	if s.gradients != nil {
		g.Go(func() error {
			out.Gradient, out.GradientErr = s.gradientFor(ctx, j.Track)
			return nil
		})
	}

	_ = g.Wait()
	return out
}
