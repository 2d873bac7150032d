package stats

import (
	"cmp"
	"slices"
	"strings"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
)

// Artists groups the library by artist name (case-insensitively, keeping the first spelling seen) and
// orders the result by play count, then song count, then name.
func Artists(library []models.Track) []models.ArtistSummary {
	index := make(map[string]int)
	artists := []models.ArtistSummary{}

	for _, t := range library {
		name := strings.TrimSpace(t.ArtistName)
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		i, ok := index[key]
		if !ok {
			i = len(artists)
			index[key] = i
			artists = append(artists, models.ArtistSummary{Name: name})
		}

		artists[i].SongCount++
		artists[i].PlayCount += t.Plays()
		artists[i].DurationMillis += t.DurationMillis
	}

	slices.SortStableFunc(artists, func(a, b models.ArtistSummary) int {
		return cmp.Or(
			cmp.Compare(b.PlayCount, a.PlayCount),
			cmp.Compare(b.SongCount, a.SongCount),
			cmp.Compare(a.Name, b.Name),
		)
	})

	return artists
}
