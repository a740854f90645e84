package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the terminal colors.
type Theme struct {
	Primary lipgloss.Color // titles and speaker names
	Dim     lipgloss.Color // timestamps and help text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Speaker lipgloss.Style
	Time    lipgloss.Style
	Text    lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Speaker: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Time:    lipgloss.NewStyle().Foreground(t.Dim),
		Text:    lipgloss.NewStyle(),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Line is one utterance in a rendered transcript.
type Line struct {
	// At is the position of the utterance from the start of the session.
	At       time.Duration
	Duration time.Duration
	Speaker  string
	Text     string
}

// Transcript renders a session transcript, one utterance per block, with
// text wrapped to width. A width of zero disables wrapping.
func (s Styles) Transcript(title string, lines []Line, width int) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString(s.Help.Render("(no utterances)"))
		b.WriteString("\n")
		return b.String()
	}
	speakerWidth := 0
	for _, l := range lines {
		speakerWidth = max(speakerWidth, lipgloss.Width(l.Speaker))
	}
	for _, l := range lines {
		stamp := s.Time.Render(fmt.Sprintf("[%s +%s]", Clock(l.At), FormatDuration(l.Duration)))
		speaker := s.Speaker.Width(speakerWidth).Render(l.Speaker)
		head := stamp + " " + speaker + "  "
		text := s.Text
		if width > 0 {
			if w := width - lipgloss.Width(head); w > 10 {
				text = text.Width(w)
			}
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, head, text.Render(l.Text)))
		b.WriteString("\n")
	}
	return b.String()
}
