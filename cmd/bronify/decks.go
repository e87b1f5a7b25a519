package main

import (
	"fmt"

	"github.com/ivlev/bronify/internal/deck"
	"github.com/ivlev/bronify/internal/journal"
	"github.com/ivlev/bronify/internal/system"
)

const decksDir = "decks"

// loadDeck reads the deck named on the command line, the --deck flag or the
// newest file in decks/, and falls back to the built-in deck.
func loadDeck(args []string) (*deck.Deck, error) {
	path := cfg.DeckPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		latest, err := system.FindLatestDeck(decksDir)
		if err != nil {
			fmt.Println("[*] Using the built-in deck")
			return deck.Default(), nil
		}
		path = latest
		fmt.Printf("[*] Выбрана колода: %s\n", path)
	}

	d, err := deck.Read(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// openJournal returns nil when journaling is disabled.
func openJournal() (*journal.Journal, error) {
	if cfg.JournalPath == "" {
		return nil, nil
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func closeJournal(j *journal.Journal) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		fmt.Printf("[!] journal close: %v\n", err)
	}
}
