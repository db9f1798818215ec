package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/storage"

	"github.com/spf13/cobra"
)

type fixtureFlags struct {
	segments int
	messages int
	prefix   string
	topics   []string
	omitQoS  bool
	force    bool
}

func newRecordFixtureCmd(app *App) *cobra.Command {
	var flags fixtureFlags

	cmd := &cobra.Command{
		Use:   "record-fixture <dir>",
		Short: "Write synthetic sqlite3 segment files without metadata.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := recordFixture(cmd, args[0], flags)
			if err != nil {
				return err
			}
			for _, p := range paths {
				app.logger.WithField("path", p).Debug("Wrote segment.")
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d segment files to %s\n", len(paths), args[0])
			return err
		},
	}

	cmd.Flags().IntVarP(&flags.segments, "segments", "n", 3, "Number of segment files")
	cmd.Flags().IntVarP(&flags.messages, "messages", "m", 10, "Messages per topic per segment")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "Segment file name prefix (default: directory name)")
	cmd.Flags().StringArrayVarP(&flags.topics, "topic", "t", []string{"/chatter:std_msgs/msg/String"}, "Topic as name:type, repeatable")
	cmd.Flags().BoolVar(&flags.omitQoS, "omit-qos", false, "Write the older topics schema without offered_qos_profiles")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Replace segment files that already exist")

	return cmd
}

func parseTopic(s string) (bag.TopicMetadata, error) {
	name, typ, ok := strings.Cut(s, ":")
	name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
	if !ok || name == "" || typ == "" {
		return bag.TopicMetadata{}, fmt.Errorf("invalid topic %q, expected name:type", s)
	}
	return bag.TopicMetadata{Name: name, Type: typ, SerializationFormat: "cdr"}, nil
}

func recordFixture(cmd *cobra.Command, dir string, flags fixtureFlags) ([]string, error) {
	if flags.segments < 1 {
		return nil, errors.New("--segments must be at least 1")
	}
	if flags.messages < 0 {
		return nil, errors.New("--messages must not be negative")
	}
	topics := make([]bag.TopicMetadata, 0, len(flags.topics))
	for _, s := range flags.topics {
		t, err := parseTopic(s)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fixture dir: %w", err)
	}
	prefix := flags.prefix
	if prefix == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		prefix = filepath.Base(abs)
	}

	ctx := cmd.Context()
	// 1s apart, starting at a fixed epoch so fixtures are reproducible.
	const step = int64(1_000_000_000)
	ts := int64(1_600_000_000) * step

	paths := make([]string, 0, flags.segments)
	for i := 0; i < flags.segments; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d%s", prefix, i, storage.SQLiteExtension))
		if flags.force {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return paths, fmt.Errorf("replace segment: %w", err)
			}
		}
		w, err := storage.CreateSQLite(ctx, path, storage.WriterOptions{OmitQoS: flags.omitQoS})
		if errors.Is(err, os.ErrExist) {
			return paths, fmt.Errorf("%w (use --force to replace)", err)
		}
		if err != nil {
			return paths, err
		}
		for _, t := range topics {
			id, err := w.AddTopic(ctx, t)
			if err != nil {
				_ = w.Close()
				return paths, err
			}
			for m := 0; m < flags.messages; m++ {
				payload := []byte(fmt.Sprintf("%s #%d", t.Name, m))
				if err := w.WriteMessage(ctx, id, ts, payload); err != nil {
					_ = w.Close()
					return paths, err
				}
				ts += step
			}
		}
		if err := w.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
