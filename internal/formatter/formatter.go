// package formatter provides functions to export sorted playlists to various formats (CSV, Markdown, plain text, JSON)
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

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

const watchURL = "https://www.youtube.com/watch?v="

// Export formats accepted by [WriteExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// ExportToCSV converts a SortedPlaylist to CSV format with columns: Position, Video ID, Title, Channel, Published At, Duration, Thumbnail
func ExportToCSV(export *models.SortedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Video ID", "Title", "Channel", "Published At", "Duration", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range export.Items {
		thumb, _ := item.Thumbnails.Best()
		record := []string{
			strconv.Itoa(i + 1),
			item.VideoID,
			item.Title,
			item.ChannelTitle,
			item.PublishedAt,
			strconv.Itoa(item.DurationSeconds),
			thumb.URL,
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

// ExportToMarkdown converts a SortedPlaylist to Markdown format with optional cover image
func ExportToMarkdown(export *models.SortedPlaylist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	title := export.Playlist.Title
	if title == "" {
		title = export.Playlist.ID
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", export.Playlist.Description))
	}

	buf.WriteString(fmt.Sprintf("**Videos**: %d\n", len(export.Items)))
	buf.WriteString(fmt.Sprintf("**Sorted by**: %s (%s)\n\n", export.Spec.Key, export.Spec.Direction))

	buf.WriteString("## Videos\n\n")
	for i, item := range export.Items {
		channelPart := ""
		if item.ChannelTitle != "" {
			channelPart = fmt.Sprintf(" - %s", item.ChannelTitle)
		}
		when := publishedDate(item)
		if item.DurationSeconds > 0 {
			when += ", " + shared.FormatDuration(item.DurationSeconds)
		}
		buf.WriteString(fmt.Sprintf("%d. [%s](%s%s)%s (%s)\n", i+1, item.Title, watchURL, item.VideoID, channelPart, when))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a SortedPlaylist to plain text format
func ExportToText(export *models.SortedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Title))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Sorted by: %s %s\n", export.Spec.Key, export.Spec.Direction))
	buf.WriteString(fmt.Sprintf("Videos: %d\n\n", len(export.Items)))

	for i, item := range export.Items {
		line := fmt.Sprintf("%d. %s [%s]", i+1, item.Title, publishedDate(item))
		if item.DurationSeconds > 0 {
			line += " " + shared.FormatDuration(item.DurationSeconds)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a SortedPlaylist to indented JSON. Every item carries a thumbnails object, empty or not.
func ExportToJSON(export *models.SortedPlaylist) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

func publishedDate(item models.EnrichedItem) string {
	if ts, ok := item.PublishedTime(); ok {
		return ts.Format(time.DateOnly)
	}
	if item.PublishedAt == "" {
		return "unknown date"
	}
	return item.PublishedAt
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

// ToMetadataJSON generates a JSON representation of playlist metadata (without items)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(export *models.SortedPlaylist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID.
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *models.SortedPlaylist, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
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

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_items.txt as the filename.
func WriteTextExport(export *models.SortedPlaylist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_items.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports a playlist to indented JSON.
//
// Defaults to {playlist.ID}.json as the filename.
func WriteJSONExport(export *models.SortedPlaylist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", export.Playlist.ID)
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// WriteExport writes export in format under dir and returns the created files.
//
// Markdown exports download the playlist's best thumbnail as the cover when one is known.
func WriteExport(export *models.SortedPlaylist, format, dir string) ([]string, error) {
	base := filepath.Join(dir, export.Playlist.ID)

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, err
		}
		return []string{res.ItemsFile, res.MetadataFile}, nil
	case FormatMarkdown:
		cover, _ := export.Playlist.Thumbnails.Best()
		res, err := WriteMarkdownExport(export, base, cover.URL)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(export, base+"_items.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON:
		path, err := WriteJSONExport(export, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteBulkExportManifest writes the manifest of a bulk export as indented JSON.
func WriteBulkExportManifest(manifest *models.ExportManifest, path string) error {
	if manifest == nil {
		return fmt.Errorf("%w: manifest is nil", shared.ErrInvalidArgument)
	}

	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Render encodes export in format to w. Used by the CLI for stdout output.
func Render(w io.Writer, export *models.SortedPlaylist, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(export)
	case FormatMarkdown:
		data, err = ExportToMarkdown(export, "")
	case FormatText:
		data, err = ExportToText(export)
	case FormatJSON:
		data, err = ExportToJSON(export)
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
