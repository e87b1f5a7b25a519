// Package ui is the terminal front end of the player: a start screen, the
// story progress bars and one view per slide kind.
package ui

import "github.com/charmbracelet/lipgloss"

// Палитра Bronify: винный и золотой
var (
	Wine   = lipgloss.Color("#860038")
	Gold   = lipgloss.Color("#FDBB30")
	Navy   = lipgloss.Color("#041E42")
	Ink    = lipgloss.Color("#f2f2f2")
	Muted  = lipgloss.Color("#6b7280")
	Green  = lipgloss.Color("#8BC34A")
	Danger = lipgloss.Color("#e53935")
)

type Styles struct {
	Title    lipgloss.Style
	Prompt   lipgloss.Style
	Option   lipgloss.Style
	Selected lipgloss.Style
	Correct  lipgloss.Style
	Wrong    lipgloss.Style
	Help     lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Start    lipgloss.Style
	Score    lipgloss.Style
	Winner   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Gold).MarginBottom(1),
		Prompt:   lipgloss.NewStyle().Bold(true).Foreground(Ink),
		Option:   lipgloss.NewStyle().Foreground(Ink).PaddingLeft(2),
		Selected: lipgloss.NewStyle().Foreground(Navy).Background(Gold).PaddingLeft(2).PaddingRight(1),
		Correct:  lipgloss.NewStyle().Foreground(Green).PaddingLeft(2),
		Wrong:    lipgloss.NewStyle().Foreground(Danger).PaddingLeft(2),
		Help:     lipgloss.NewStyle().Foreground(Muted),
		Status:   lipgloss.NewStyle().Foreground(Gold).Italic(true),
		Error:    lipgloss.NewStyle().Foreground(Danger),
		Start: lipgloss.NewStyle().
			Bold(true).
			Foreground(Ink).
			Background(Wine).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Gold),
		Score:  lipgloss.NewStyle().Foreground(Ink).Width(14),
		Winner: lipgloss.NewStyle().Bold(true).Foreground(Gold),
	}
}
