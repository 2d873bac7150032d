// Apple Music API implementation of [Library]
//
// Response types based on https://developer.apple.com/documentation/applemusicapi
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const appleMusicBaseURL = "https://api.music.apple.com"

const (
	librarySongsEndpoint     = "/v1/me/library/songs"
	libraryPlaylistsEndpoint = "/v1/me/library/playlists"
	recentlyPlayedEndpoint   = "/v1/me/recent/played/tracks"
	recommendationsEndpoint  = "/v1/me/recommendations"
)

// MusicArtwork is the templated artwork object on songs and playlists.
type MusicArtwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MusicSongAttributes holds the library song attributes the app reads.
type MusicSongAttributes struct {
	Name             string       `json:"name"`
	ArtistName       string       `json:"artistName"`
	AlbumName        string       `json:"albumName"`
	ReleaseDate      string       `json:"releaseDate"`
	DurationInMillis int          `json:"durationInMillis"`
	PlayCount        *int         `json:"playCount"`
	ContentRating    string       `json:"contentRating"`
	GenreNames       []string     `json:"genreNames"`
	TrackNumber      int          `json:"trackNumber"`
	Artwork          MusicArtwork `json:"artwork"`
}

// MusicSong is a library-songs (or songs) resource.
type MusicSong struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Attributes MusicSongAttributes `json:"attributes"`
}

// MusicPlaylist is a library-playlists resource.
type MusicPlaylist struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name        string `json:"name"`
		CanEdit     bool   `json:"canEdit"`
		Description struct {
			Standard string `json:"standard"`
		} `json:"description"`
	} `json:"attributes"`
}

// MusicRecommendation is a personal-recommendation resource.
type MusicRecommendation struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Kind  string `json:"kind"`
		Title struct {
			StringForDisplay string `json:"stringForDisplay"`
		} `json:"title"`
	} `json:"attributes"`
}

// Track maps the vendor resource onto [models.Track].
func (s MusicSong) Track() models.Track {
	a := s.Attributes
	return models.Track{
		ID:             s.ID,
		Name:           a.Name,
		ArtistName:     a.ArtistName,
		AlbumName:      a.AlbumName,
		ReleaseDate:    a.ReleaseDate,
		DurationMillis: a.DurationInMillis,
		PlayCount:      a.PlayCount,
		ContentRating:  a.ContentRating,
		GenreNames:     a.GenreNames,
		TrackNumber:    a.TrackNumber,
		Artwork:        models.Artwork{URL: a.Artwork.URL, Width: a.Artwork.Width, Height: a.Artwork.Height},
	}
}

// Playlist maps the vendor resource onto [models.Playlist] without tracks.
func (p MusicPlaylist) Playlist() models.Playlist {
	return models.Playlist{ID: p.ID, Name: p.Attributes.Name}
}

// APIError is a non-2xx response from the vendor. It matches [shared.ErrAPIRequest].
type APIError struct {
	Endpoint   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s returned status %d", shared.ErrAPIRequest, e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// IsNotFound reports whether err is a vendor 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// PageSizes configures the page size of each paged endpoint.
type PageSizes struct {
	Songs          int
	Playlists      int
	PlaylistTracks int
	Recent         int
}

// DefaultPageSizes mirrors the vendor maximums the app relies on.
var DefaultPageSizes = PageSizes{Songs: 100, Playlists: 25, PlaylistTracks: 100, Recent: 10}

// MusicOpts configures [NewMusicService].
type MusicOpts struct {
	BaseURL        string
	DeveloperToken string
	UserToken      string
	// HTTPClient supplies the base transport and timeout; the developer token is layered on top.
	HTTPClient        *http.Client
	RequestsPerSecond float64
	PageSizes         PageSizes
}

// MusicService implements [Library] against the Apple Music API.
//
// Every request carries the developer token as a bearer credential through an [oauth2.Transport];
// personalized requests add the [UserTokenHeader].
type MusicService struct {
	baseURL    string
	userToken  string
	httpClient *http.Client
	limiter    *rate.Limiter
	pages      PageSizes
}

// NewMusicService creates an Apple Music client. The developer token is required.
func NewMusicService(opts MusicOpts) (*MusicService, error) {
	if opts.DeveloperToken == "" {
		return nil, fmt.Errorf("%w: developer token is required", shared.ErrMissingCredentials)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = appleMusicBaseURL
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.DeveloperToken, TokenType: "Bearer"})
	client := &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: base.Transport},
		Timeout:   base.Timeout,
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	pages := opts.PageSizes
	if pages == (PageSizes{}) {
		pages = DefaultPageSizes
	}

	return &MusicService{
		baseURL:    baseURL,
		userToken:  opts.UserToken,
		httpClient: client,
		limiter:    limiter,
		pages:      pages,
	}, nil
}

func (s *MusicService) Name() string {
	return "Apple Music"
}

// WithUserToken returns a copy of s that sends token as the user credential.
func (s *MusicService) WithUserToken(token string) *MusicService {
	c := *s
	c.userToken = token
	return &c
}

// Forward performs a GET against the vendor and returns the response untouched.
//
// userToken overrides the service's own user token when non-empty.
func (s *MusicService) Forward(ctx context.Context, endpoint string, query url.Values, userToken string) (*APIResponse, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	fullURL := s.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if userToken == "" {
		userToken = s.userToken
	}
	if userToken != "" {
		req.Header.Set(UserTokenHeader, userToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// doRequest performs an authenticated personalized GET and decodes the JSON body into result.
func (s *MusicService) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	if s.userToken == "" {
		return fmt.Errorf("%w: music user token is not set", shared.ErrNotAuthenticated)
	}

	resp, err := s.Forward(ctx, endpoint, query, "")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetPage implements [PageGetter].
func (s *MusicService) GetPage(ctx context.Context, endpoint string, limit, offset int, out any) error {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	return s.doRequest(ctx, endpoint, query, out)
}

// LibrarySongs retrieves every library song.
func (s *MusicService) LibrarySongs(ctx context.Context) ([]models.Track, error) {
	songs, err := FetchAll[MusicSong](ctx, s, librarySongsEndpoint, s.pages.Songs)
	if err != nil {
		return nil, err
	}
	return toTracks(songs), nil
}

// LibraryPlaylists retrieves every library playlist without its tracks.
func (s *MusicService) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	resources, err := FetchAll[MusicPlaylist](ctx, s, libraryPlaylistsEndpoint, s.pages.Playlists)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(resources))
	for _, p := range resources {
		playlists = append(playlists, p.Playlist())
	}
	return playlists, nil
}

// PlaylistTracks retrieves the ordered tracks of a playlist.
//
// The vendor answers 404 for an empty playlist (and for an offset past the end), which is read as an empty page.
func (s *MusicService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := libraryPlaylistsEndpoint + "/" + url.PathEscape(playlistID) + "/tracks"
	songs, err := FetchAll[MusicSong](ctx, notFoundAsEmpty{s}, endpoint, s.pages.PlaylistTracks)
	if err != nil {
		return nil, err
	}
	return toTracks(songs), nil
}

// RecentlyPlayed retrieves the recently played tracks.
func (s *MusicService) RecentlyPlayed(ctx context.Context) ([]models.Track, error) {
	songs, err := FetchAll[MusicSong](ctx, s, recentlyPlayedEndpoint, s.pages.Recent)
	if err != nil {
		return nil, err
	}
	return toTracks(songs), nil
}

// Recommendations retrieves the personal recommendation groups. ids restricts the result when non-empty.
func (s *MusicService) Recommendations(ctx context.Context, ids []string) ([]models.Recommendation, error) {
	query := url.Values{}
	if len(ids) > 0 {
		query.Set("ids", strings.Join(ids, ","))
	}

	var page Page[MusicRecommendation]
	if err := s.doRequest(ctx, recommendationsEndpoint, query, &page); err != nil {
		return nil, err
	}

	recs := make([]models.Recommendation, 0, len(page.Data))
	for _, r := range page.Data {
		recs = append(recs, models.Recommendation{
			ID:    r.ID,
			Title: r.Attributes.Title.StringForDisplay,
			Kind:  r.Attributes.Kind,
		})
	}
	return recs, nil
}

func toTracks(songs []MusicSong) []models.Track {
	tracks := make([]models.Track, 0, len(songs))
	for _, s := range songs {
		tracks = append(tracks, s.Track())
	}
	return tracks
}

// notFoundAsEmpty leaves out unchanged when the wrapped getter reports a 404.
type notFoundAsEmpty struct {
	PageGetter
}

func (n notFoundAsEmpty) GetPage(ctx context.Context, endpoint string, limit, offset int, out any) error {
	if err := n.PageGetter.GetPage(ctx, endpoint, limit, offset, out); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}
