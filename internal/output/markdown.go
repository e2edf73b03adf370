package output

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Card widths, in columns
const (
	fallbackWidth = 80
	minCardWidth  = 20
	maxCardWidth  = 100
)

// TerminalWidth returns the width of stdout, then $COLUMNS, then fallback
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if w, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && w > 0 {
		return w
	}
	if fallback <= 0 {
		return fallbackWidth
	}
	return fallback
}

// cardWidth clamps the terminal width to something a card reads well at
func cardWidth() int {
	return min(max(TerminalWidth(fallbackWidth), minCardWidth), maxCardWidth)
}

// RenderMarkdown renders markdown for stdout. Piped output gets the plain
// style so no escape codes end up in files.
func RenderMarkdown(text string) (string, error) {
	style := "notty"
	if term.IsTerminal(int(os.Stdout.Fd())) {
		style = ""
	}
	return renderMarkdown(text, cardWidth(), style)
}

// renderMarkdown renders with a named glamour style, or the style matching
// the terminal background when style is empty
func renderMarkdown(text string, width int, style string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(max(width, minCardWidth))}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}

	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
