package story

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/sequencer"
)

const (
	personaResume = 300 * time.Millisecond
	triviaResume  = 2500 * time.Millisecond
	exitDelay     = 1500 * time.Millisecond
)

// QuizSlide holds the countdown until the viewer picks an option. A persona
// quiz stores the option's result in the session for a later result slide;
// trivia reveals the correct answer first.
type QuizSlide struct {
	base

	selected int
	answered bool
}

func (q *QuizSlide) Mount(sc *sequencer.SlideContext) {
	q.mu.Lock()
	q.sc = sc
	q.selected = -1
	q.answered = false
	q.mu.Unlock()

	sc.Action(sequencer.CommandPause)
	q.play(sc, q.slide.Track, q.slide.Loop)
	q.armFallback(sc, func() { sc.Action(sequencer.CommandPlay) })
}

func (q *QuizSlide) Unmount() {
	q.release()
	q.stopAudio()
}

// Answer picks option i. Only the first answer counts.
func (q *QuizSlide) Answer(i int) error {
	quiz := q.slide.Quiz
	q.mu.Lock()
	sc := q.sc
	switch {
	case sc == nil || sc.Context().Err() != nil:
		q.mu.Unlock()
		return ErrNotActive
	case q.answered:
		q.mu.Unlock()
		return ErrAnswered
	case i < 0 || i >= len(quiz.Options):
		q.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoOption, i)
	}
	q.answered = true
	q.selected = i
	q.mu.Unlock()

	opt := quiz.Options[i]
	log := q.env.Log.With(zap.String("slide", q.slide.ID), zap.Int("option", i))

	switch {
	case opt.Exit:
		log.Info("quiz exit option picked")
		q.play(sc, quiz.Sound, false)
		sc.After(exitDelay, sc.Exit)
	case quiz.IsTrivia():
		log.Info("trivia answered", zap.Bool("correct", i == *quiz.Correct))
		sc.After(q.resumeAfter(triviaResume), func() { sc.Action(sequencer.CommandPlay) })
	default:
		sc.Session().Set(quiz.SessionKey(), opt.Result)
		log.Info("quiz choice stored", zap.String("choice", opt.Result))
		sc.After(q.resumeAfter(personaResume), func() { sc.Action(sequencer.CommandPlay) })
	}
	return nil
}

func (q *QuizSlide) resumeAfter(def time.Duration) time.Duration {
	if ms := q.slide.Quiz.ResumeMs; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func (q *QuizSlide) View() View {
	v := q.baseView()
	quiz := q.slide.Quiz
	v.Prompt = quiz.Prompt
	for _, o := range quiz.Options {
		text := o.Text
		if o.Detail != "" {
			text += " · " + o.Detail
		}
		v.Options = append(v.Options, text)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	v.Selected = q.selected
	if quiz.IsTrivia() && q.answered {
		v.Revealed = true
		v.Correct = *quiz.Correct
	}
	return v
}
