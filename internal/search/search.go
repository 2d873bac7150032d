// package search matches library tracks against a free-text query
package search

import (
	"strings"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
)

// DefaultLimit is how many results are shown for a query.
const DefaultLimit = 5

// Search returns the tracks whose name or artist name contains query, ignoring case, in library order.
//
// A blank query matches nothing. Otherwise the query is matched as typed, surrounding spaces included.
func Search(library []models.Track, query string) []models.Track {
	if strings.TrimSpace(query) == "" {
		return []models.Track{}
	}
	q := strings.ToLower(query)

	results := []models.Track{}
	for _, t := range library {
		if strings.Contains(strings.ToLower(t.Name), q) || strings.Contains(strings.ToLower(t.ArtistName), q) {
			results = append(results, t)
		}
	}
	return results
}

// Top returns at most n results of [Search]. A non-positive n uses [DefaultLimit].
func Top(library []models.Track, query string, n int) []models.Track {
	if n <= 0 {
		n = DefaultLimit
	}

	results := Search(library, query)
	if len(results) > n {
		results = results[:n]
	}
	return results
}
