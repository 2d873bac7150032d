package formatter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/palette"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/stats"
	th "github.com/devonwallerson/amlibrary-plays/internal/testing"
)

func plays(n int) *int { return &n }

func testTracks() []models.Track {
	return []models.Track{
		{
			ID:             "i.1",
			Name:           "Midnight City",
			ArtistName:     "M83",
			AlbumName:      "Hurry Up, We're Dreaming",
			ReleaseDate:    "2011-10-14",
			DurationMillis: 243000,
			PlayCount:      plays(57),
		},
		{
			ID:             "i.2",
			Name:           "Holocene",
			ArtistName:     "Bon Iver",
			DurationMillis: 337000,
		},
	}
}

func testStats() *stats.Stats {
	return &stats.Stats{
		Track: testTracks()[0],
		ReplayRanks: []stats.ReplayRank{
			{Year: "2024", Rank: 3, Playlist: "Replay 2024"},
			{Year: "2023", Rank: 12, Playlist: "Replay 2023"},
		},
		MixBadges:      []string{"Heavy Rotation Mix", stats.FavoriteSongBadge},
		RecentlyPlayed: true,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: "MD", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: " txt ", want: FormatText},
		{in: "text", want: FormatText},
		{in: "json", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("ParseFormat(%q): expected ErrInvalidArgument, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("LibraryToCSV", func(t *testing.T) {
		data, err := LibraryToCSV(testTracks())
		if err != nil {
			t.Fatalf("LibraryToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Name,Artist,Album,Release Date,Length,Plays") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `i.1,Midnight City,M83,"Hurry Up, We're Dreaming",2011-10-14,00:04:03,57`) {
			t.Errorf("CSV missing quoted track row, got: %s", output)
		}
		if !strings.Contains(output, "i.2,Holocene,Bon Iver,,,00:05:37,\n") {
			t.Errorf("CSV should leave unknown plays empty, got: %s", output)
		}
	})

	t.Run("LibraryToMarkdown", func(t *testing.T) {
		data, err := LibraryToMarkdown(testTracks(), "")
		if err != nil {
			t.Fatalf("LibraryToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "# Library\n") {
			t.Errorf("Markdown missing default title")
		}
		if !strings.Contains(output, "1. M83 - Midnight City (Hurry Up, We're Dreaming) [00:04:03] · 57 plays") {
			t.Errorf("Markdown missing track line, got: %s", output)
		}
		if !strings.Contains(output, "2. Bon Iver - Holocene [00:05:37] · - plays") {
			t.Errorf("Markdown should omit empty album, got: %s", output)
		}
	})

	t.Run("LibraryToText", func(t *testing.T) {
		data, _ := LibraryToText(testTracks())
		output := string(data)
		if !strings.Contains(output, "Songs: 2") || !strings.Contains(output, "2. Bon Iver - Holocene") {
			t.Errorf("unexpected text export: %s", output)
		}
	})

	t.Run("ExportLibrary unknown format", func(t *testing.T) {
		if _, err := ExportLibrary(testTracks(), Format("xml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ArtistsToText", func(t *testing.T) {
		output := string(ArtistsToText([]models.ArtistSummary{
			{Name: "Bon Iver", SongCount: 12, PlayCount: 340, DurationMillis: 3_600_000},
			{Name: "M83", SongCount: 3, PlayCount: 57, DurationMillis: 61_000},
		}))

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %q", output)
		}
		if !strings.HasPrefix(lines[1], "Bon Iver") || !strings.HasSuffix(lines[1], "01:00:00") {
			t.Errorf("unexpected row %q", lines[1])
		}
		if !strings.HasPrefix(lines[2], "M83     ") {
			t.Errorf("expected names padded to a column, got %q", lines[2])
		}
	})

	t.Run("StatsToText", func(t *testing.T) {
		g := palette.NewGradient([]palette.RGB{{R: 0, G: 0, B: 0}, {R: 10, G: 20, B: 80}})
		output := string(StatsToText(testStats(), g))

		for _, want := range []string{
			"Song Name:       Midnight City",
			"Number of Plays: 57",
			"Song Length:     00:04:03",
			"Replay 2024: #3",
			"Replay 2023: #12",
			"★ Favorite Song",
			"Recently Played: yes",
			"Palette: #000000 #0a1450",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in:\n%s", want, output)
			}
		}
	})

	t.Run("StatsToText empty", func(t *testing.T) {
		st := &stats.Stats{Track: testTracks()[1], Omitted: []string{"Replay 2022"}}
		output := string(StatsToText(st, nil))

		if strings.Count(output, "none") != 2 {
			t.Errorf("expected empty sections to say none, got:\n%s", output)
		}
		if !strings.Contains(output, "Unavailable: Replay 2022") {
			t.Errorf("expected omitted playlists to be listed")
		}
		if strings.Contains(output, "Palette") {
			t.Errorf("expected no palette line without a gradient")
		}
	})

	t.Run("StatsToMarkdown", func(t *testing.T) {
		g := palette.NewGradient([]palette.RGB{{R: 0, G: 0, B: 0}})
		output := string(StatsToMarkdown(testStats(), g, "cover.jpg"))

		for _, want := range []string{
			"# Midnight City",
			"![Midnight City album cover](cover.jpg)",
			"| 2024 | 3 |",
			"- Heavy Rotation Mix",
			"`linear-gradient(180deg, #000000 0%, #000000 100%)`",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in:\n%s", want, output)
			}
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		_, err := DownloadImage("")
		if err == nil {
			t.Error("DownloadImage with empty URL should return error")
		}
	})

	t.Run("BadStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		if _, err := DownloadImage(server.URL); err == nil || !strings.Contains(err.Error(), "404") {
			t.Errorf("expected status error, got %v", err)
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteLibraryExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			path, err := WriteLibraryExport(testTracks(), FormatCSV, "")
			if err != nil {
				t.Fatalf("WriteLibraryExport failed: %v", err)
			}
			if path != "library.csv" {
				t.Errorf("Expected 'library.csv', got '%s'", path)
			}

			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, "Midnight City") {
				t.Errorf("CSV missing track data")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "songs.md")

			got, err := WriteLibraryExport(testTracks(), FormatMarkdown, path)
			if err != nil {
				t.Fatalf("WriteLibraryExport failed: %v", err)
			}
			if got != path {
				t.Errorf("Expected '%s', got '%s'", path, got)
			}
			th.AssertFileExists(t, path)
		})
	})

	t.Run("WriteStatsMarkdown", func(t *testing.T) {
		t.Run("WithCover", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write([]byte("jpeg-bytes"))
			}))
			defer server.Close()

			dir := filepath.Join(t.TempDir(), "report")
			result, err := WriteStatsMarkdown(testStats(), nil, dir, server.URL)
			if err != nil {
				t.Fatalf("WriteStatsMarkdown failed: %v", err)
			}

			if len(result.Files) != 2 || result.CoverImage == "" {
				t.Errorf("expected cover and README, got %+v", result)
			}
			th.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))
			if content := th.MustReadFile(t, filepath.Join(dir, "README.md")); !strings.Contains(content, "(cover.jpg)") {
				t.Errorf("README should reference the cover")
			}
		})

		t.Run("WithoutCover", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "report")
			result, err := WriteStatsMarkdown(testStats(), nil, dir, "")
			if err != nil {
				t.Fatalf("WriteStatsMarkdown failed: %v", err)
			}
			if len(result.Files) != 1 || result.CoverImage != "" {
				t.Errorf("expected README only, got %+v", result)
			}
		})
	})
}
