package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/system"
)

var deckForce bool

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Create and check story decks",
}

var deckInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default deck, binding tracks found in the assets dir",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDeckInit,
}

var deckLintCmd = &cobra.Command{
	Use:   "lint [deck]",
	Short: "Validate a deck and check its audio files",
	Long: `Validates the deck structure, then probes every referenced track with
ffprobe and reports missing files and tracks shorter than their slide.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeckLint,
}

func init() {
	deckInitCmd.Flags().BoolVarP(&deckForce, "force", "f", false, "Overwrite an existing deck file")
	deckCmd.AddCommand(deckInitCmd, deckLintCmd)
}

func runDeckInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(decksDir, "bronify.yaml")
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !deckForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	d := deck.Default()
	audioDir := filepath.Join(cfg.AssetsDir, "audio")
	files, err := system.ListAudio(audioDir)
	if err != nil {
		fmt.Printf("[!] No audio in %s: %v\n", audioDir, err)
	} else {
		n := deck.BindAudio(d, files)
		fmt.Printf("[*] Bound %d of %d tracks from %s\n", n, len(d.Assets.Audio), audioDir)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := deck.Write(d, path); err != nil {
		return err
	}
	fmt.Printf("[+++] Deck written: %s (%d slides)\n", path, len(d.Slides))
	return nil
}

func runDeckLint(cmd *cobra.Command, args []string) error {
	d, err := loadDeck(args)
	if err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	issues, err := deck.Lint(cmd.Context(), d, cfg.AssetsDir, cfg.DefaultInterval, cfg.Workers)
	if err != nil {
		return err
	}
	for _, is := range issues {
		fmt.Printf("[!] %s\n", is)
	}
	if len(issues) == 0 {
		fmt.Printf("[+++] %d slides OK\n", len(d.Slides))
		return nil
	}
	fmt.Printf("[*] %d issue(s)\n", len(issues))
	return nil
}
