// Package cmd implements the litesheet command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/paupaudragon/LiteSheet/internal/config"
	"github.com/paupaudragon/LiteSheet/internal/style"
	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

// Version is the litesheet release, set with -ldflags at build time.
var Version = "dev"

var (
	configPath string
	logLevel   string
	sheetFile  string
)

// loaded by the root PersistentPreRunE
var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "litesheet",
	Short: "A small spreadsheet engine for the terminal",
	Long: `litesheet keeps named cells holding text, numbers or formulas such as
=(A1+B1)*2 and recomputes every dependent cell after each edit.

The sheet lives in a JSON file (--file, default sheet.json) that every
command reads and, when it changes something, writes back.

Examples:
  litesheet set A1 5
  litesheet set B1 =A1*2
  litesheet show
  litesheet repl`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to litesheet.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the config")
	rootCmd.PersistentFlags().StringVarP(&sheetFile, "file", "f", "sheet.json", "Spreadsheet file")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if code, ok := IsSilentExit(err); ok {
			return code
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", style.Render(style.IsTerminal(os.Stderr), style.Error, "Error:"), err)
		return 1
	}
	return 0
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	level, err := loaded.Level()
	if err != nil {
		return err
	}

	cfg = loaded
	logger = newLogger(cmd.ErrOrStderr(), level)
	return nil
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, NoColor: !style.IsTerminal(w)}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// lockContext bounds file lock waits by storage.lock_timeout
func lockContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, cfg.Storage.LockTimeout.Duration)
}

// openSheet loads --file, or starts an empty spreadsheet when it does not
// exist yet
func openSheet(cmd *cobra.Command) (*spreadsheet.Spreadsheet, error) {
	opts, err := cfg.SheetOptions(logger)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(sheetFile); errors.Is(err, os.ErrNotExist) {
		logger.Debug().Str("path", sheetFile).Msg("starting a new spreadsheet")
		return spreadsheet.NewSpreadsheet(opts...), nil
	}

	ctx, cancel := lockContext(cmd)
	defer cancel()
	s, err := spreadsheet.Load(ctx, sheetFile, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", sheetFile, err)
	}
	return s, nil
}

// saveSheet writes the spreadsheet back to --file if it changed
func saveSheet(cmd *cobra.Command, s *spreadsheet.Spreadsheet) error {
	if !s.Changed() {
		return nil
	}
	ctx, cancel := lockContext(cmd)
	defer cancel()
	if err := s.Save(ctx, sheetFile); err != nil {
		return fmt.Errorf("saving %s: %w", sheetFile, err)
	}
	return nil
}
