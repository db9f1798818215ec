package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/reindex"
	"bag-reindex/internal/segment"
)

func sampleResult() reindex.Result {
	return reindex.Result{
		State:      reindex.StatePersisted,
		BaseFolder: "/data/my_bag",
		Segments: []segment.Segment{
			{Path: "/data/my_bag/my_bag_0.db3", SequenceID: 0},
			{Path: "/data/my_bag/my_bag_1.db3", SequenceID: 1},
		},
		Metadata: bag.Metadata{
			Version:           4,
			StorageIdentifier: "sqlite3",
			RelativeFilePaths: []string{"my_bag_0.db3", "my_bag_1.db3"},
			Duration:          2 * time.Second,
			StartingTime:      time.Unix(1700000000, 0),
			MessageCount:      12,
			TopicsWithMessageCount: []bag.TopicInformation{
				{Topic: bag.TopicMetadata{Name: "/chatter", Type: "std_msgs/msg/String", SerializationFormat: "cdr"}, MessageCount: 12},
			},
			BagSize: 2048,
		},
	}
}

func TestBuildReindexMarkdown(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	md := BuildReindexMarkdown(sampleResult(), now)

	for _, want := range []string{
		"# Reindex of /data/my_bag",
		"Reindexed: 2026-01-02T03:04:05Z",
		"state: persisted",
		"segments: 2",
		"bag_size: 2.0 kB (2048 bytes)",
		"1. `my_bag_0.db3`",
		"2. `my_bag_1.db3`",
		"| /chatter | std_msgs/msg/String | cdr | 12 |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in report:\n%s", want, md)
		}
	}
}

func TestBuildReindexMarkdown_Aborted(t *testing.T) {
	md := BuildReindexMarkdown(reindex.Result{State: reindex.StateAborted, BaseFolder: "/empty"}, time.Now())
	if !strings.Contains(md, "No segment files found") {
		t.Fatalf("unexpected report:\n%s", md)
	}
	if strings.Contains(md, "## Topics") {
		t.Fatalf("aborted report should not list topics:\n%s", md)
	}
}

func TestBuildMetadataMarkdown_NoTopicsAndLongNames(t *testing.T) {
	meta := bag.Metadata{}
	md := BuildMetadataMarkdown(meta)
	if !strings.Contains(md, "_No topics were listed in metadata._") || !strings.Contains(md, "_none_") {
		t.Fatalf("unexpected report:\n%s", md)
	}

	long := "/" + strings.Repeat("very_long_topic_", 10)
	meta.TopicsWithMessageCount = []bag.TopicInformation{{Topic: bag.TopicMetadata{Name: long, Type: "a|b"}}}
	md = BuildMetadataMarkdown(meta)
	if strings.Contains(md, long) {
		t.Fatalf("expected long topic name to be truncated:\n%s", md)
	}
	if !strings.Contains(md, `a\|b`) {
		t.Fatalf("expected pipe to be escaped:\n%s", md)
	}
}

func TestExporter_WritesReportFile(t *testing.T) {
	dir := t.TempDir()
	exp, err := NewExporter(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	path, err := exp.Export(sampleResult(), time.Now())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "reindex-my_bag.md" {
		t.Fatalf("unexpected report path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "# Reindex of /data/my_bag") {
		t.Fatalf("unexpected report contents:\n%s", data)
	}
}

func TestRenderFallsBackToMarkdownOnBadStyle(t *testing.T) {
	md := "# Title\n"
	if got := Render(md, "no-such-style", 80); got != md {
		t.Fatalf("expected raw markdown, got %q", got)
	}
	if got := Render(md, "notty", 80); !strings.Contains(got, "Title") {
		t.Fatalf("expected rendered title, got %q", got)
	}
}

func TestBadge(t *testing.T) {
	if got := Badge(reindex.StatePersisted, nil); !strings.Contains(got, "REINDEXED") {
		t.Fatalf("unexpected badge %q", got)
	}
	if got := Badge(reindex.StateAborted, nil); !strings.Contains(got, "NOTHING TO DO") {
		t.Fatalf("unexpected badge %q", got)
	}
	if got := Badge(reindex.StateBootstrapping, errors.New("boom")); !strings.Contains(got, "boom") {
		t.Fatalf("unexpected badge %q", got)
	}
}
