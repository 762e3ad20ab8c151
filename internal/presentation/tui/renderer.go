package tui

import (
	"strings"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Renderer turns block text into terminal output.
type Renderer func(string) (string, error)

// NewRenderer returns a function that renders markdown using glamour.
// Block texts are plain strings, but authors often use *emphasis* or lists.
func NewRenderer() Renderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return PlainRenderer
	}

	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(out), nil
	}
}

// PlainRenderer returns the text unchanged. Used when stdout is not a terminal.
func PlainRenderer(text string) (string, error) {
	return text, nil
}

// Speaker returns the colored prefix printed before a transcript line.
func Speaker(role domain.Role, color bool) string {
	name := "bot"
	hex := "#34d399"
	if role == domain.RoleUser {
		name = "you"
		hex = "#60a5fa"
	}
	if !color {
		return name + "> "
	}
	p := termenv.ColorProfile()
	return termenv.String(name + "> ").Foreground(p.Color(hex)).Bold().String()
}
