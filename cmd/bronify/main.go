package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/config"
	"github.com/ivlev/bronify/internal/logging"
	"github.com/ivlev/bronify/internal/system"
)

var (
	cfg    = config.Default()
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bronify",
	Short: "Bronify Wrapped - a story player for your year in Bron",
	Long: `bronify plays a "Wrapped"-style story deck in the terminal: timed slides
with background music, a persona quiz, a trivia question, a mini game and a
shareable 1080x1920 card at the end.

Run "bronify play" to start the experience.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Увеличиваем лимиты системы (для macOS/Linux)
		if _, err := system.InitResourceLimits(); err != nil {
			fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		}
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		if f := cmd.Flag("journal"); f != nil && !f.Changed {
			cfg.JournalPath = filepath.Join(cfg.OutputDir, "bronify.db")
		}

		opts := logging.Options{Verbose: cfg.Verbose, JSON: cfg.JSONLogs}
		// TUI занимает терминал, логи пишем в файл
		if cmd.Name() == "play" && !cfg.Headless {
			opts.OutputPaths = []string{filepath.Join(cfg.OutputDir, "bronify.log")}
		}
		var err error
		logger, err = logging.New(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&cfg.JSONLogs, "json-logs", false, "Log as JSON")
	pf.StringVar(&cfg.DeckPath, "deck", "", "Deck file (default: newest in decks/, else the built-in deck)")
	pf.StringVar(&cfg.AssetsDir, "assets", cfg.AssetsDir, "Assets directory (audio, images, videos)")
	pf.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Output directory for cards and logs")
	pf.StringVar(&cfg.JournalPath, "journal", filepath.Join(cfg.OutputDir, "bronify.db"), "Event journal (SQLite), empty to disable")
	pf.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel workers")

	// Экспорт карточки
	pf.IntVar(&cfg.Width, "width", cfg.Width, "Card width")
	pf.IntVar(&cfg.Height, "height", cfg.Height, "Card height")
	pf.StringVar(&cfg.Background, "background", cfg.Background, "Card letterbox color (#rgb or #rrggbb)")
	pf.BoolVar(&cfg.TrimMargins, "trim", false, "Crop flat margins around a visual before fitting it to the card")
	pf.StringVar(&cfg.ShareURL, "share-url", "", "Public base URL of the share server (enables QR codes)")
	pf.StringSliceVar(&cfg.ShareCmd, "share-cmd", nil, "Command that shares a card; the file path is appended")

	rootCmd.AddCommand(playCmd, exportCmd, deckCmd, shareCmd, journalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "[-]", err)
		os.Exit(1)
	}
}
