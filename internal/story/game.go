package story

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/bronify/internal/sequencer"
)

const (
	gameTick     = time.Second
	winnerDelay  = 500 * time.Millisecond
	gameResume   = 4 * time.Second
	shotsPerTick = 2
)

// GameView is the scoreboard of the shootout.
type GameView struct {
	Players  []string
	Scores   []int
	TimeLeft int
	Over     bool
	Winner   string
}

// GameSlide is a short shootout: the countdown is held while the game runs,
// players score at random, the viewer's taps score for the favorite. When
// time runs out the favorite is shown as the winner and the story resumes.
type GameSlide struct {
	base
	rng *rand.Rand

	scores     []int
	timeLeft   int
	over       bool
	showWinner bool
}

func (g *GameSlide) Mount(sc *sequencer.SlideContext) {
	game := g.slide.Game
	g.mu.Lock()
	g.sc = sc
	g.scores = make([]int, len(game.Players))
	g.timeLeft = game.Seconds
	g.over = false
	g.showWinner = false
	g.mu.Unlock()

	sc.Action(sequencer.CommandPause)
	g.play(sc, g.slide.Track, g.slide.Loop)
	sc.After(gameTick, func() { g.tick(sc) })
}

func (g *GameSlide) Unmount() {
	g.release()
	g.stopAudio()
}

func (g *GameSlide) tick(sc *sequencer.SlideContext) {
	game := g.slide.Game

	g.mu.Lock()
	if g.sc != sc || g.over {
		g.mu.Unlock()
		return
	}
	for range shotsPerTick {
		g.shootLocked()
	}
	g.timeLeft--
	if g.timeLeft == 1 {
		g.ensureFavoriteLocked()
	}
	if g.timeLeft > 0 {
		g.mu.Unlock()
		sc.After(gameTick, func() { g.tick(sc) })
		return
	}
	g.ensureFavoriteLocked()
	g.over = true
	scores := append([]int(nil), g.scores...)
	g.mu.Unlock()

	g.env.Log.Info("game over",
		zap.String("winner", game.Players[game.Favorite]),
		zap.Ints("scores", scores))

	sc.After(winnerDelay, func() {
		g.mu.Lock()
		g.showWinner = true
		g.mu.Unlock()
	})
	resume := gameResume
	if game.ResumeMs > 0 {
		resume = time.Duration(game.ResumeMs) * time.Millisecond
	}
	sc.After(resume, func() { sc.Action(sequencer.CommandPlay) })
}

// shootLocked: любимчик попадает чаще и всегда за три очка.
func (g *GameSlide) shootLocked() {
	fav := g.slide.Game.Favorite
	p := g.rng.IntN(len(g.scores))
	if p == fav {
		if g.rng.Float64() > 0.35 {
			g.scores[p] += 3
		}
		return
	}
	if g.rng.Float64() > 0.55 {
		g.scores[p] += 2 + g.rng.IntN(2)
	}
}

func (g *GameSlide) ensureFavoriteLocked() {
	fav := g.slide.Game.Favorite
	best := 0
	for i, s := range g.scores {
		if i != fav && s > best {
			best = s
		}
	}
	if g.scores[fav] <= best {
		g.scores[fav] = best + 5
	}
}

// Tap scores three for the favorite while the game is running.
func (g *GameSlide) Tap() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sc == nil || g.sc.Context().Err() != nil {
		return ErrNotActive
	}
	if g.over {
		return nil
	}
	g.scores[g.slide.Game.Favorite] += 3
	return nil
}

func (g *GameSlide) View() View {
	v := g.baseView()
	game := g.slide.Game
	g.mu.Lock()
	defer g.mu.Unlock()
	gv := &GameView{
		Players:  game.Players,
		Scores:   append([]int(nil), g.scores...),
		TimeLeft: g.timeLeft,
		Over:     g.over,
	}
	if g.showWinner {
		gv.Winner = game.Players[game.Favorite]
	}
	v.Game = gv
	return v
}
