// Package formatter renders library data and track stats as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/palette"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/stats"
)

// Format is an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts csv, md, markdown, txt and text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want csv, md or txt)", shared.ErrInvalidArgument, s)
	}
}

func playsString(t models.Track) string {
	if t.PlayCount == nil {
		return "-"
	}
	return strconv.Itoa(*t.PlayCount)
}

// LibraryToCSV converts tracks to CSV with columns: ID, Name, Artist, Album, Release Date, Length, Plays
func LibraryToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "Release Date", "Length", "Plays"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		plays := ""
		if track.PlayCount != nil {
			plays = strconv.Itoa(*track.PlayCount)
		}
		record := []string{
			track.ID,
			track.Name,
			track.ArtistName,
			track.AlbumName,
			track.ReleaseDate,
			track.Length(),
			plays,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// LibraryToMarkdown converts tracks to a numbered Markdown list under a heading.
func LibraryToMarkdown(tracks []models.Track, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Library"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Songs**: %d\n\n", len(tracks)))

	buf.WriteString("## Songs\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumName)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s] · %s plays\n", i+1, track.ArtistName, track.Name, albumPart, track.Length(), playsString(track)))
	}

	return buf.Bytes(), nil
}

// LibraryToText converts tracks to plain text.
func LibraryToText(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Songs: %d\n\n", len(tracks)))
	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.ArtistName, track.Name))
	}

	return buf.Bytes(), nil
}

// ExportLibrary renders tracks in format.
func ExportLibrary(tracks []models.Track, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return LibraryToCSV(tracks)
	case FormatMarkdown:
		return LibraryToMarkdown(tracks, "")
	case FormatText:
		return LibraryToText(tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ArtistsToText renders the artist list as aligned columns.
func ArtistsToText(artists []models.ArtistSummary) []byte {
	var buf bytes.Buffer

	width := len("Artist")
	for _, a := range artists {
		width = max(width, len(a.Name))
	}

	buf.WriteString(fmt.Sprintf("%-*s  %6s  %6s  %s\n", width, "Artist", "Songs", "Plays", "Length"))
	for _, a := range artists {
		buf.WriteString(fmt.Sprintf("%-*s  %6d  %6d  %s\n", width, a.Name, a.SongCount, a.PlayCount, shared.FormatDuration(a.DurationMillis)))
	}

	return buf.Bytes()
}

// StatsToText renders the stats of a selected track. g may be nil.
func StatsToText(st *stats.Stats, g *palette.Gradient) []byte {
	var buf bytes.Buffer
	t := st.Track

	buf.WriteString("Selected Song\n")
	buf.WriteString(fmt.Sprintf("  Song Name:       %s\n", t.Name))
	buf.WriteString(fmt.Sprintf("  Artist Name:     %s\n", t.ArtistName))
	buf.WriteString(fmt.Sprintf("  Album Name:      %s\n", t.AlbumName))
	buf.WriteString(fmt.Sprintf("  Release Date:    %s\n", t.ReleaseDate))
	buf.WriteString(fmt.Sprintf("  Number of Plays: %s\n", playsString(t)))
	buf.WriteString(fmt.Sprintf("  Song Length:     %s\n", t.Length()))

	buf.WriteString("\nReplay Ranks\n")
	if len(st.ReplayRanks) == 0 {
		buf.WriteString("  none\n")
	}
	for _, r := range st.ReplayRanks {
		buf.WriteString(fmt.Sprintf("  Replay %s: #%d\n", r.Year, r.Rank))
	}

	buf.WriteString("\nMixes\n")
	if len(st.MixBadges) == 0 {
		buf.WriteString("  none\n")
	}
	for _, b := range st.MixBadges {
		buf.WriteString(fmt.Sprintf("  ★ %s\n", b))
	}

	buf.WriteString(fmt.Sprintf("\nRecently Played: %s\n", yesNo(st.RecentlyPlayed)))

	if len(st.Omitted) > 0 {
		buf.WriteString(fmt.Sprintf("Unavailable: %s\n", strings.Join(st.Omitted, ", ")))
	}

	if g != nil {
		buf.WriteString(fmt.Sprintf("Palette: %s\n", hexList(g)))
	}

	return buf.Bytes()
}

// StatsToMarkdown renders the stats of a selected track with an optional cover image. g may be nil.
func StatsToMarkdown(st *stats.Stats, g *palette.Gradient, imageFilename string) []byte {
	var buf bytes.Buffer
	t := st.Track

	buf.WriteString(fmt.Sprintf("# %s\n\n", t.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![%s album cover](%s)\n\n", t.Name, imageFilename))
	}

	buf.WriteString(fmt.Sprintf("- **Song Name**: %s\n", t.Name))
	buf.WriteString(fmt.Sprintf("- **Artist Name**: %s\n", t.ArtistName))
	buf.WriteString(fmt.Sprintf("- **Album Name**: %s\n", t.AlbumName))
	buf.WriteString(fmt.Sprintf("- **Release Date**: %s\n", t.ReleaseDate))
	buf.WriteString(fmt.Sprintf("- **Number of Plays**: %s\n", playsString(t)))
	buf.WriteString(fmt.Sprintf("- **Song Length**: %s\n", t.Length()))
	buf.WriteString(fmt.Sprintf("- **Recently Played**: %s\n\n", yesNo(st.RecentlyPlayed)))

	if len(st.ReplayRanks) > 0 {
		buf.WriteString("## Replay\n\n")
		buf.WriteString("| Year | Rank |\n|------|------|\n")
		for _, r := range st.ReplayRanks {
			buf.WriteString(fmt.Sprintf("| %s | %d |\n", r.Year, r.Rank))
		}
		buf.WriteString("\n")
	}

	if len(st.MixBadges) > 0 {
		buf.WriteString("## Mixes\n\n")
		for _, b := range st.MixBadges {
			buf.WriteString(fmt.Sprintf("- %s\n", b))
		}
		buf.WriteString("\n")
	}

	if g != nil {
		buf.WriteString("## Palette\n\n")
		buf.WriteString(fmt.Sprintf("`%s`\n", g.CSS()))
	}

	return buf.Bytes()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func hexList(g *palette.Gradient) string {
	colors := g.Colors()
	hexes := make([]string, len(colors))
	for i, c := range colors {
		hexes[i] = c.Hex()
	}
	return strings.Join(hexes, " ")
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteLibraryExport writes tracks in format to path.
//
// Defaults to library.{format} in the working directory.
func WriteLibraryExport(tracks []models.Track, format Format, path string) (string, error) {
	if path == "" {
		path = "library." + string(format)
	}

	data, err := ExportLibrary(tracks, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// MarkdownExportResult contains information about files created by WriteStatsMarkdown
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteStatsMarkdown writes a stats report to {outputDir}/README.md.
//
// The imageURL parameter is optional - if provided, attempts to download the cover image to {outputDir}/cover.jpg.
// A failed download is reported on stderr and the report is written without it.
func WriteStatsMarkdown(st *stats.Stats, g *palette.Gradient, outputDir, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = st.Track.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, StatsToMarkdown(st, g, coverImageFilename), 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}
