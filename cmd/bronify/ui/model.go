package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ivlev/bronify/internal/engine"
	"github.com/ivlev/bronify/internal/export"
	"github.com/ivlev/bronify/internal/sequencer"
	"github.com/ivlev/bronify/internal/story"
)

const refreshEvery = 100 * time.Millisecond

type tickMsg time.Time

type doneMsg struct{}

type shareMsg struct {
	res export.Result
	err error
}

// Model drives one player session.
type Model struct {
	player  *engine.Player
	overlay *Overlay
	styles  Styles

	bar      progress.Model
	glamour  string
	renderer *glamour.TermRenderer
	bodies   map[string]string

	width, height int

	started  bool
	complete bool
	sharing  bool
	status   string
	err      error
}

type Option func(*Model)

// WithGlamourStyle picks a glamour standard style ("dark", "light", "notty").
func WithGlamourStyle(name string) Option { return func(m *Model) { m.glamour = name } }

func WithStyles(s Styles) Option { return func(m *Model) { m.styles = s } }

func New(p *engine.Player, overlay *Overlay, opts ...Option) Model {
	m := Model{
		player:  p,
		overlay: overlay,
		styles:  DefaultStyles(),
		bar:     progress.New(progress.WithGradient(string(Wine), string(Gold)), progress.WithoutPercentage()),
		glamour: "dark",
		bodies:  make(map[string]string),
		width:   80,
		height:  24,
	}
	if m.overlay == nil {
		m.overlay = &Overlay{}
	}
	for _, o := range opts {
		o(&m)
	}
	m.renderer = m.newRenderer()
	return m
}

func (m Model) newRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.glamour),
		glamour.WithWordWrap(max(20, m.width-4)),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd { return nil }

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitDone() tea.Cmd {
	done := m.player.Seq.Done()
	return func() tea.Msg {
		<-done
		return doneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.renderer = m.newRenderer()
		m.bodies = make(map[string]string)
		return m, nil

	case tickMsg:
		if m.complete {
			return m, nil
		}
		return m, tick()

	case doneMsg:
		m.complete = true
		m.status = "That's a wrap! Press s to share your card, q to quit."
		return m, nil

	case shareMsg:
		m.sharing = false
		switch {
		case errors.Is(msg.err, export.ErrCancelled):
			m.status = ""
		case msg.err != nil:
			m.err = msg.err
			m.status = ""
		default:
			m.err = nil
			m.status = fmt.Sprintf("Card shared via %s: %s", msg.res.Method, msg.res.Location)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" || key == "esc" {
		return m, tea.Quit
	}

	if !m.started {
		if key == "enter" || key == " " {
			m.started = true
			m.player.Start()
			return m, tea.Batch(tick(), m.waitDone())
		}
		return m, nil
	}

	if key == "s" {
		return m.share()
	}
	if m.complete {
		return m, nil
	}

	_, sl := m.player.Active()
	m.err = nil
	switch key {
	case "right", "n":
		m.player.Seq.Next()
	case "left", "p":
		m.player.Seq.Prev()
	case "h":
		m.togglePause()
	case " ":
		if t, ok := sl.(story.Tapper); ok {
			m.err = t.Tap()
		} else {
			m.togglePause()
		}
	case "k":
		if s, ok := sl.(story.Skipper); ok {
			m.err = s.Skip()
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if a, ok := sl.(story.Answerer); ok {
			m.err = a.Answer(int(key[0] - '1'))
		}
	}
	if errors.Is(m.err, story.ErrAnswered) || errors.Is(m.err, story.ErrNotActive) {
		m.err = nil
	}
	return m, nil
}

func (m *Model) togglePause() {
	if m.player.Seq.Snapshot().IsPaused {
		m.player.Seq.Resume()
	} else {
		m.player.Seq.Pause()
	}
}

func (m Model) share() (tea.Model, tea.Cmd) {
	if m.sharing {
		return m, nil
	}
	p := m.player
	idx, sl := p.Active()
	if sl == nil || sl.Spec().Visual == "" {
		idx = lastVisual(p)
		if idx < 0 {
			m.err = engine.ErrNoVisual
			return m, nil
		}
	}
	slide := p.Deck.Slides[idx]
	m.sharing = true
	m.status = "Capturing card..."
	return m, func() tea.Msg {
		res, err := p.ShareSlide(context.Background(), idx, slide)
		return shareMsg{res: res, err: err}
	}
}

// lastVisual finds the share card: the last slide that has a visual.
func lastVisual(p *engine.Player) int {
	for i := len(p.Deck.Slides) - 1; i >= 0; i-- {
		if p.Deck.Slides[i].Visual != "" {
			return i
		}
	}
	return -1
}

func (m Model) View() string {
	if !m.started {
		return m.startView()
	}

	var b strings.Builder
	if !m.overlay.Hidden() {
		b.WriteString(m.progressView())
		b.WriteString("\n\n")
	}

	if m.complete {
		b.WriteString(m.styles.Title.Render(m.player.Deck.Title))
		b.WriteString("\n")
	} else if _, sl := m.player.Active(); sl != nil {
		b.WriteString(m.slideView(sl.View()))
	}

	if m.status != "" {
		b.WriteString("\n" + m.styles.Status.Render(m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + m.styles.Error.Render("error: "+m.err.Error()) + "\n")
	}
	if !m.overlay.Hidden() {
		b.WriteString("\n" + m.styles.Help.Render(m.help()))
	}
	return b.String()
}

func (m Model) startView() string {
	title := m.styles.Title.Render(m.player.Deck.Title)
	button := m.styles.Start.Render("Start Experience")
	hint := m.styles.Help.Render("press enter to start · q to quit")
	return lipgloss.JoinVertical(lipgloss.Center, title, button, "", hint)
}

// progressView draws one segment per slide: full for finished slides, the
// elapsed ratio for the active one.
func (m Model) progressView() string {
	snap := m.player.Seq.Snapshot()
	n := snap.Total
	if n == 0 {
		return ""
	}
	seg := max(1, (m.width-(n-1))/n)
	bar := m.bar
	bar.Width = seg

	parts := make([]string, n)
	for i := range n {
		var pct float64
		switch {
		case m.complete || snap.State == sequencer.Complete || i < snap.ActiveIndex:
			pct = 1
		case i == snap.ActiveIndex && snap.Duration > 0:
			pct = float64(snap.Elapsed) / float64(snap.Duration)
		}
		parts[i] = bar.ViewAs(pct)
	}
	line := strings.Join(parts, " ")
	if snap.IsPaused {
		line += "\n" + m.styles.Help.Render("paused")
	}
	return line
}

func (m Model) slideView(v story.View) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(v.Title))
	b.WriteString("\n")
	if v.Body != "" {
		b.WriteString(m.body(v.Body))
		b.WriteString("\n")
	}

	if v.Prompt != "" {
		b.WriteString(m.styles.Prompt.Render(v.Prompt) + "\n\n")
		for i, opt := range v.Options {
			line := fmt.Sprintf("%d. %s", i+1, opt)
			style := m.styles.Option
			switch {
			case v.Revealed && i == v.Correct:
				style = m.styles.Correct
				line += " ✓"
			case v.Revealed && i == v.Selected:
				style = m.styles.Wrong
				line += " ✗"
			case i == v.Selected:
				style = m.styles.Selected
			}
			b.WriteString(style.Render(line) + "\n")
		}
	}

	if g := v.Game; g != nil {
		b.WriteString(m.gameView(g))
	}

	if v.VideoPlaying {
		bar := m.bar
		bar.Width = max(10, m.width/2)
		b.WriteString("▶ " + bar.ViewAs(v.VideoProgress) + "\n")
	}
	if v.Share {
		b.WriteString(m.styles.Status.Render("Press s to share your Bronify Wrapped card") + "\n")
	}
	return b.String()
}

func (m Model) gameView(g *story.GameView) string {
	var b strings.Builder
	if g.Over {
		b.WriteString(m.styles.Winner.Render(fmt.Sprintf("🏆 %s wins!", g.Winner)) + "\n")
	} else {
		b.WriteString(fmt.Sprintf("⏱ %ds  (space to shoot for your favorite)\n", g.TimeLeft))
	}
	for i, name := range g.Players {
		b.WriteString(m.styles.Score.Render(name) + fmt.Sprintf("%3d\n", g.Scores[i]))
	}
	return b.String()
}

// body renders slide markdown once per text and size. A result slide
// changes its text with the quiz choice, so the text itself is the key.
func (m Model) body(md string) string {
	if out, ok := m.bodies[md]; ok {
		return out
	}
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	out = strings.TrimSpace(out)
	m.bodies[md] = out
	return out
}

func (m Model) help() string {
	if m.complete {
		return "s share · q quit"
	}
	_, sl := m.player.Active()
	keys := []string{"←/→ prev/next", "h pause"}
	switch sl.(type) {
	case story.Answerer:
		keys = append(keys, "1-9 answer")
	case story.Tapper:
		keys = append(keys, "space shoot")
	case story.Skipper:
		keys = append(keys, "k skip")
	}
	keys = append(keys, "s share", "q quit")
	return strings.Join(keys, " · ")
}
