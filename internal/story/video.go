package story

import (
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/sequencer"
)

// VideoSlide holds the countdown while a clip plays. The clip is not decoded:
// its length comes from the deck and the slide resumes when it ends.
type VideoSlide struct {
	base

	playing bool
	started time.Time
}

func (v *VideoSlide) Mount(sc *sequencer.SlideContext) {
	v.mu.Lock()
	v.sc = sc
	v.playing = true
	v.started = time.Now()
	v.mu.Unlock()

	sc.Action(sequencer.CommandPause)
	if v.slide.Video.StopAudio {
		v.stopAudio()
	}
	v.env.Log.Info("video playing",
		zap.String("slide", v.slide.ID),
		zap.String("asset", v.env.Deck.Resolve(v.env.Root, v.slide.Video.Asset)))
	sc.After(time.Duration(v.slide.Video.LengthMs)*time.Millisecond, v.end)
}

func (v *VideoSlide) Unmount() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
	v.release()
}

// Skip ends the clip early.
func (v *VideoSlide) Skip() error {
	if v.active() == nil {
		return ErrNotActive
	}
	v.end()
	return nil
}

func (v *VideoSlide) end() {
	v.mu.Lock()
	sc := v.sc
	was := v.playing
	v.playing = false
	v.mu.Unlock()
	if sc == nil || !was {
		return
	}
	sc.Action(sequencer.CommandPlay)
}

func (v *VideoSlide) View() View {
	view := v.baseView()
	v.mu.Lock()
	defer v.mu.Unlock()
	view.VideoPlaying = v.playing
	if v.playing {
		length := time.Duration(v.slide.Video.LengthMs) * time.Millisecond
		view.VideoProgress = min(1, float64(time.Since(v.started))/float64(length))
	}
	return view
}
