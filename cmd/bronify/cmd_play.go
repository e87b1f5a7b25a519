package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ivlev/bronify/cmd/bronify/ui"
	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/engine"
	"github.com/ivlev/bronify/internal/export"
)

var playCmd = &cobra.Command{
	Use:   "play [deck]",
	Short: "Play the story deck",
	Long: `Plays the deck in the terminal. Press enter on the start screen to begin;
the music starts with the first story.

With --headless the stories run without a UI, interactive slides resume on
their own after --fallback, and progress is written to the log.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&cfg.Headless, "headless", false, "Run without the terminal UI")
	playCmd.Flags().BoolVar(&cfg.Mute, "mute", false, "Disable audio output")
	playCmd.Flags().DurationVar(&cfg.InteractiveFallback, "fallback", 0, "Resume unanswered interactive slides after this wait (0 = wait forever, headless default 5s)")
	playCmd.Flags().DurationVar(&cfg.DefaultInterval, "interval", cfg.DefaultInterval, "Duration of slides that do not set one")
	playCmd.Flags().Float64Var(&cfg.Audio.Volume, "volume", cfg.Audio.Volume, "Default track volume [0,1]")
}

// sharer picks the preferred share target; nil means download only.
func sharer() export.Sharer {
	switch {
	case len(cfg.ShareCmd) > 0:
		return &export.CommandSharer{Args: cfg.ShareCmd, Dir: cfg.OutputDir}
	case cfg.ShareURL != "":
		return export.NewServer(cfg.OutputDir, cfg.ShareURL, logger)
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := loadDeck(args)
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(j)

	opts := []engine.Option{engine.WithSharer(sharer())}
	if j != nil {
		opts = append(opts, engine.WithJournal(j))
	}

	if cfg.Headless {
		return playHeadless(ctx, d, opts)
	}

	overlay := &ui.Overlay{}
	opts = append(opts, engine.WithChrome(overlay))
	p, err := engine.New(cfg, d, logger, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	prog := tea.NewProgram(ui.New(p, overlay), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

func playHeadless(ctx context.Context, d *deck.Deck, opts []engine.Option) error {
	p, err := engine.New(cfg, d, logger, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Printf("[*] Playing %q (%d stories)\n", d.Title, p.Seq.Len())
	p.Start()
	if err := p.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("[!] Interrupted")
			return nil
		}
		return err
	}

	for _, s := range d.Slides {
		if s.Quiz == nil || s.Quiz.IsTrivia() {
			continue
		}
		if choice, ok := p.Seq.Session().Get(s.Quiz.SessionKey()); ok {
			fmt.Printf("[*] %s: %s\n", s.Title(), choice)
		}
	}
	fmt.Println("[+++] All stories completed!")
	return nil
}
