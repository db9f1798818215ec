package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/config"
	"bag-reindex/internal/metadataio"
	"bag-reindex/internal/reindex"
	"bag-reindex/internal/report"
	"bag-reindex/internal/storage"
	"bag-reindex/internal/ui"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// ErrMetadataExists is returned when metadata.yaml is present and --force
// was not given.
var ErrMetadataExists = errors.New("metadata already exists")

// ErrInteractiveDryRun is returned for --interactive with --dry-run: the
// printed YAML would be lost behind the terminal UI.
var ErrInteractiveDryRun = errors.New("--interactive cannot be combined with --dry-run")

type reindexFlags struct {
	force       bool
	dryRun      bool
	interactive bool
	reportDir   string
}

func newReindexCmd(app *App) *cobra.Command {
	var flags reindexFlags

	cmd := &cobra.Command{
		Use:   "reindex <bag_dir>",
		Short: "Rebuild metadata.yaml from the segment files of a bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interactive") {
				// The UI owns stdout, so a configured default yields to --dry-run.
				flags.interactive = app.cfg.Interactive && !flags.dryRun
			}
			if flags.interactive && flags.dryRun {
				return ErrInteractiveDryRun
			}
			return app.runReindex(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite an existing metadata.yaml")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the recovered metadata to stdout instead of writing it")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "Show progress and the result in a terminal UI")
	cmd.Flags().StringVar(&flags.reportDir, "report-dir", "", "Also write a markdown report into this directory")
	cmd.Flags().StringVar(&app.CompressionFormat, "compression-format", "", "Compression format recorded in the metadata, e.g. zstd")
	cmd.Flags().StringVar(&app.CompressionMode, "compression-mode", "", "Compression mode recorded in the metadata (none|file|message)")
	cmd.Flags().StringVar(&app.SerializationFormat, "serialization-format", "", "Serialization format for topics whose segment recorded none, e.g. cdr")

	return cmd
}

func (a *App) runReindex(cmd *cobra.Command, dir string, flags reindexFlags) error {
	bagDir, err := config.ResolveBagDir(dir)
	if err != nil {
		return err
	}

	registry := storage.Default()
	if _, err := registry.Backend(a.cfg.StorageID); err != nil {
		return err
	}

	var out metadataio.IO = metadataio.NewYAML()
	if !flags.force && !flags.dryRun && out.MetadataFileExists(bagDir) {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrMetadataExists, metadataio.Path(bagDir))
	}
	if flags.dryRun {
		out = metadataio.Printer{Out: cmd.OutOrStdout()}
	}

	opts := reindex.Options{
		BaseFolder:          bagDir,
		StorageID:           a.cfg.StorageID,
		CompressionFormat:   a.cfg.CompressionFormat,
		CompressionMode:     a.cfg.CompressionMode,
		SerializationFormat: a.cfg.SerializationFormat,
	}

	var res reindex.Result
	if flags.interactive {
		// The terminal UI owns the screen while it runs.
		a.logger.SetOutput(io.Discard)
		res, err = ui.Run(func(ctx context.Context, observe func(reindex.State)) (reindex.Result, error) {
			r := reindex.New(registry, out, reindex.WithLogger(a.logger), reindex.WithObserver(observe))
			return r.Reindex(ctx, opts)
		}, a.cfg.GlamourStyle)
	} else {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		res, err = reindex.New(registry, out, reindex.WithLogger(a.logger)).Reindex(ctx, opts)
	}
	if err != nil {
		a.logger.WithError(err).WithField("kind", reindex.KindOf(err)).Error("Reindex failed.")
		return err
	}

	if flags.reportDir != "" {
		exporter, err := report.NewExporter(flags.reportDir)
		if err != nil {
			return err
		}
		path, err := exporter.Export(res, time.Now())
		if err != nil {
			return err
		}
		a.logger.WithField("path", path).Info("Wrote reindex report.")
	}

	if flags.dryRun || flags.interactive {
		return nil
	}
	return a.printResult(cmd.OutOrStdout(), res)
}

func (a *App) printResult(w io.Writer, res reindex.Result) error {
	if isTerminal(w) {
		md := report.BuildReindexMarkdown(res, time.Now())
		_, err := fmt.Fprintln(w, report.Badge(res.State, nil)+"\n"+report.Render(md, a.cfg.GlamourStyle, 100))
		return err
	}
	if !res.Written() {
		_, err := fmt.Fprintf(w, "%s: no segment files found, nothing written\n", res.BaseFolder)
		return err
	}
	_, err := fmt.Fprintln(w, summaryLine(res.BaseFolder, res.Metadata))
	return err
}

func summaryLine(dir string, meta bag.Metadata) string {
	return fmt.Sprintf("%s: %d files, %d topics, %d messages, %s",
		dir,
		len(meta.RelativeFilePaths),
		len(meta.TopicsWithMessageCount),
		meta.MessageCount,
		humanize.Bytes(meta.BagSize),
	)
}
