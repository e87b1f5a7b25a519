package story

import (
	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/sequencer"
)

// ResultSlide shows the outcome of the persona quiz. Without a stored
// choice it falls back to the deck default.
type ResultSlide struct {
	base
	choice string
}

func (r *ResultSlide) Mount(sc *sequencer.SlideContext) {
	res := r.slide.Results
	choice := sc.Session().GetOr(res.SessionKey(), res.Default)

	r.mu.Lock()
	r.sc = sc
	r.choice = choice
	r.mu.Unlock()

	sc.Action(sequencer.CommandPlay)

	track, ok := res.Tracks[choice]
	if !ok {
		track = res.Tracks[res.Default]
	}
	r.env.Log.Info("showing quiz result", zap.String("choice", choice))
	r.play(sc, track, r.slide.Loop)
}

func (r *ResultSlide) Unmount() {
	r.release()
	r.stopAudio()
}

// Choice is the result being shown; empty before the first mount.
func (r *ResultSlide) Choice() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.choice
}

func (r *ResultSlide) View() View {
	v := r.baseView()
	choice := r.Choice()
	if body, ok := r.slide.Results.Bodies[choice]; ok {
		v.Body = body
	}
	return v
}
