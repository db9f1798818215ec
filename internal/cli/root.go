package cli

import (
	"io"
	"os"
	"strings"

	"bag-reindex/internal/config"
	"bag-reindex/internal/storage"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	StorageID  string
	LogLevel   string
	LogFormat  string

	// Set by reindex flags; applied over the loaded config.
	CompressionFormat   string
	CompressionMode     string
	SerializationFormat string

	cfg    config.AppConfig
	logger *logrus.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "bag-reindex",
		Short:         "Rebuild metadata.yaml of a segmented bag from its segment files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Recover metadata.yaml for a bag whose metadata was lost
  bag-reindex reindex ./my_bag

  # Preview the recovered metadata without writing anything
  bag-reindex reindex ./my_bag --dry-run

  # Show the metadata of a bag
  bag-reindex info ./my_bag
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config file (default: $BAG_REINDEX_CONFIG or ~/.config/bag-reindex/config.toml)")
	cmd.PersistentFlags().StringVarP(&app.StorageID, "storage", "s", "", "Storage identifier of the segment files ("+strings.Join(storage.Default().IDs(), "|")+")")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", "", "Log format (text|json)")

	cmd.AddCommand(newReindexCmd(app))
	cmd.AddCommand(newInfoCmd(app))
	cmd.AddCommand(newRecordFixtureCmd(app))

	return cmd
}

func (a *App) init(cmd *cobra.Command) error {
	path, err := config.DetectConfigPath(a.ConfigPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.StorageID != "" {
		cfg.StorageID = a.StorageID
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if a.LogFormat != "" {
		cfg.LogFormat = a.LogFormat
	}
	if a.CompressionFormat != "" {
		cfg.CompressionFormat = a.CompressionFormat
	}
	if a.CompressionMode != "" {
		cfg.CompressionMode = a.CompressionMode
	}
	if a.SerializationFormat != "" {
		cfg.SerializationFormat = a.SerializationFormat
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
