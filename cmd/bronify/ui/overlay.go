package ui

import "sync/atomic"

// Overlay is the player chrome (progress bars and key help). The exporter
// hides it while a card is captured.
type Overlay struct {
	hidden atomic.Bool
}

func (o *Overlay) Hide() { o.hidden.Store(true) }

func (o *Overlay) Show() { o.hidden.Store(false) }

func (o *Overlay) Hidden() bool { return o.hidden.Load() }
