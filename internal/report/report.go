package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/reindex"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

const maxCellWidth = 60

type Exporter struct {
	dir string
}

func NewExporter(dir string) (*Exporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve cwd: %w", err)
		}
		dir = cwd
	}
	return &Exporter{dir: dir}, nil
}

// Export writes the markdown report of res and returns its path.
func (e *Exporter) Export(res reindex.Result, now time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(e.dir, "reindex-"+safeFileName(filepath.Base(res.BaseFolder))+".md")
	if err := os.WriteFile(path, []byte(BuildReindexMarkdown(res, now)), 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}

func BuildReindexMarkdown(res reindex.Result, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Reindex of " + safeValue(res.BaseFolder) + "\n\n")
	b.WriteString("Reindexed: " + now.UTC().Format(time.RFC3339) + "\n\n")

	if res.State == reindex.StateAborted {
		b.WriteString("_No segment files found. No metadata was written._\n")
		return b.String()
	}

	b.WriteString("```text\n")
	b.WriteString("state: " + res.State.String() + "\n")
	b.WriteString(fmt.Sprintf("segments: %d\n", len(res.Segments)))
	b.WriteString("```\n\n")
	b.WriteString(BuildMetadataMarkdown(res.Metadata))
	return b.String()
}

// BuildMetadataMarkdown describes a bag's metadata: summary block, file
// list and topic table.
func BuildMetadataMarkdown(meta bag.Metadata) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString("```text\n")
	b.WriteString(fmt.Sprintf("version: %d\n", meta.Version))
	b.WriteString("storage_identifier: " + safeValue(meta.StorageIdentifier) + "\n")
	b.WriteString(fmt.Sprintf("bag_size: %s (%d bytes)\n", humanize.Bytes(meta.BagSize), meta.BagSize))
	b.WriteString(fmt.Sprintf("message_count: %d\n", meta.MessageCount))
	b.WriteString("duration: " + meta.Duration.String() + "\n")
	b.WriteString("starting_time: " + formatTime(meta.StartingTime) + "\n")
	b.WriteString("end_time: " + formatTime(meta.EndTime()) + "\n")
	if meta.CompressionFormat != "" {
		b.WriteString("compression: " + meta.CompressionFormat + " (" + safeValue(meta.CompressionMode) + ")\n")
	}
	b.WriteString("```\n\n")

	b.WriteString("## Files\n\n")
	if len(meta.RelativeFilePaths) == 0 {
		b.WriteString("_none_\n\n")
	} else {
		for i, p := range meta.RelativeFilePaths {
			b.WriteString(fmt.Sprintf("%d. `%s`\n", i+1, p))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Topics\n\n")
	if len(meta.TopicsWithMessageCount) == 0 {
		b.WriteString("_No topics were listed in metadata._\n")
		return b.String()
	}
	b.WriteString("| Topic | Type | Format | Messages |\n")
	b.WriteString("| --- | --- | --- | ---: |\n")
	for _, t := range meta.TopicsWithMessageCount {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n",
			cell(t.Topic.Name),
			cell(t.Topic.Type),
			cell(t.Topic.SerializationFormat),
			t.MessageCount,
		))
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
	if s == "" {
		return "n/a"
	}
	return ansi.Truncate(s, maxCellWidth, "…")
}

func formatTime(t time.Time) string {
	if t.IsZero() || t.UnixNano() == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%s (%d ns)", t.UTC().Format(time.RFC3339Nano), t.UnixNano())
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == string(filepath.Separator) {
		return "bag"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
