package cli

import (
	"fmt"
	"io"
	"os"

	"bag-reindex/internal/bag"
	"bag-reindex/internal/config"
	"bag-reindex/internal/metadataio"
	"bag-reindex/internal/report"
	"bag-reindex/internal/segment"

	"github.com/spf13/cobra"
)

func newInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <bag_dir>",
		Short: "Print the metadata.yaml of a bag and flag listed files that are missing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bagDir, err := config.ResolveBagDir(args[0])
			if err != nil {
				return err
			}
			meta, err := metadataio.NewYAML().ReadMetadata(bagDir)
			if err != nil {
				return err
			}
			missing, err := missingFiles(bagDir, meta)
			if err != nil {
				return err
			}
			for _, p := range missing {
				app.logger.WithField("path", p).Warn("Listed file is missing.")
			}

			w := cmd.OutOrStdout()
			md := report.BuildMetadataMarkdown(meta)
			if isTerminal(w) {
				md = report.Render(md, app.cfg.GlamourStyle, 100)
			}
			if _, err := fmt.Fprintln(w, md); err != nil {
				return err
			}
			return printMissing(w, missing)
		},
	}
}

// missingFiles resolves the listed relative paths the way the bag's
// format version requires and returns those that are not regular files.
func missingFiles(bagDir string, meta bag.Metadata) ([]string, error) {
	paths, err := segment.ResolveRelativePaths(bagDir, meta.RelativeFilePaths, meta.Version)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil || !stat.Mode().IsRegular() {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

func printMissing(w io.Writer, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "missing files (%d):\n", len(missing)); err != nil {
		return err
	}
	for _, p := range missing {
		if _, err := fmt.Fprintf(w, "  - %s\n", p); err != nil {
			return err
		}
	}
	return nil
}
