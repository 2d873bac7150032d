package stats

import "github.com/devonwallerson/amlibrary-plays/internal/models"

// Matches reports whether a and b are the same song.
//
// Library and playlist endpoints disagree on track ids, so identity is either the normalized (name, artist)
// pair or the (duration, track number) pair. The second branch needs a known duration.
func Matches(a, b models.Track) bool {
	if a.Key() == b.Key() {
		return true
	}
	return a.DurationMillis != 0 && a.DurationMillis == b.DurationMillis && a.TrackNumber == b.TrackNumber
}

// Position returns the 1-based index of the first track in tracks matching selected, or 0.
func Position(tracks []models.Track, selected models.Track) int {
	for i, t := range tracks {
		if Matches(t, selected) {
			return i + 1
		}
	}
	return 0
}

// RecentSet holds recently played tracks by (name, artist) identity.
type RecentSet map[string]struct{}

// NewRecentSet builds a set from tracks.
func NewRecentSet(tracks []models.Track) RecentSet {
	set := make(RecentSet, len(tracks))
	for _, t := range tracks {
		set[t.Key()] = struct{}{}
	}
	return set
}

// Contains reports whether t was recently played.
func (s RecentSet) Contains(t models.Track) bool {
	_, ok := s[t.Key()]
	return ok
}
