// package formatter renders lookup results as JSON, plain text, Markdown or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// Formats lists the supported formats in the order shown by help text.
var Formats = []Format{FormatJSON, FormatText, FormatMarkdown, FormatCSV}

// ParseFormat parses a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	default:
		return ".json"
	}
}

// Render formats a result. JSON is the response body verbatim, re-indented when pretty is set.
func Render(r *services.Result, format Format, pretty bool) ([]byte, error) {
	if format == FormatJSON {
		return shared.MarshalJSON(json.RawMessage(r.Data), pretty)
	}

	listing, err := FromResult(r)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatText:
		return ToText(listing), nil
	case FormatMarkdown:
		return ToMarkdown(listing, ""), nil
	case FormatCSV:
		return ToCSV(listing)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour. Zero renders as "".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func (r Row) line() string {
	var b strings.Builder
	if r.Artists != "" {
		b.WriteString(r.Artists)
		b.WriteString(" - ")
	}
	b.WriteString(r.Name)
	if r.Album != "" {
		fmt.Fprintf(&b, " (%s)", r.Album)
	}
	if d := FormatDuration(r.Duration); d != "" {
		fmt.Fprintf(&b, " [%s]", d)
	}
	return b.String()
}

// ToText renders a listing as plain text
func ToText(l *Listing) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s: %s\n", titleCase(l.Kind), l.Title)
	if l.Subtitle != "" {
		fmt.Fprintf(&buf, "%s\n", l.Subtitle)
	}
	if l.URL != "" {
		fmt.Fprintf(&buf, "%s\n", l.URL)
	}

	for _, s := range l.Sections {
		fmt.Fprintf(&buf, "\n%s (%d)\n", s.Heading, len(s.Rows))
		for i, row := range s.Rows {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, row.line())
		}
	}

	return buf.Bytes()
}

// ToMarkdown renders a listing as Markdown with an optional cover image
func ToMarkdown(l *Listing, imageFilename string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Kind**: %s\n", l.Kind)
	if l.Subtitle != "" {
		fmt.Fprintf(&buf, "**Details**: %s\n", l.Subtitle)
	}
	if l.URL != "" {
		fmt.Fprintf(&buf, "**Link**: <%s>\n", l.URL)
	}

	for _, s := range l.Sections {
		fmt.Fprintf(&buf, "\n## %s\n\n", s.Heading)
		for i, row := range s.Rows {
			if row.URL != "" {
				fmt.Fprintf(&buf, "%d. [%s](%s)\n", i+1, row.line(), row.URL)
			} else {
				fmt.Fprintf(&buf, "%d. %s\n", i+1, row.line())
			}
		}
	}

	return buf.Bytes()
}

// ToCSV renders a listing as CSV with columns: Section, Position, Name, Artists, Album, Duration, URL
func ToCSV(l *Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Section", "Position", "Name", "Artists", "Album", "Duration", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range l.Sections {
		for i, row := range s.Rows {
			record := []string{
				s.Heading,
				strconv.Itoa(i + 1),
				row.Name,
				row.Artists,
				row.Album,
				FormatDuration(row.Duration),
				row.URL,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
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

// WriteExport renders r in format and writes it to path, creating parent directories.
func WriteExport(r *services.Result, format Format, pretty bool, path string) error {
	data, err := Render(r, format, pretty)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes a listing to {outputDir}/README.md, downloading the listing's
// cover image to {outputDir}/cover.jpg when it has one. A failed download is reported
// through warn and the README is written without it.
func WriteMarkdownExport(l *Listing, outputDir string, client *http.Client, warn func(error)) (*MarkdownExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if l.ImageURL != "" {
		imageData, err := DownloadImage(client, l.ImageURL)
		if err == nil {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			err = os.WriteFile(coverImagePath, imageData, 0644)
			if err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
		if err != nil && warn != nil {
			warn(fmt.Errorf("cover image: %w", err))
		}
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, ToMarkdown(l, coverImageFilename), 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
