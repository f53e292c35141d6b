package repl

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dshills/ptyagent/internal/config"
)

// fallbackWidth is used when the output is not a terminal.
const fallbackWidth = 80

// terminalWidth returns the width of stdout, or fallbackWidth.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallbackWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return fallbackWidth
	}
	return w
}

// promptStyles renders the separator and prompt line.
type promptStyles struct {
	separator lipgloss.Style
	clock     lipgloss.Style
	tokens    lipgloss.Style
	arrow     lipgloss.Style
}

func newPromptStyles(out io.Writer) promptStyles {
	r := lipgloss.NewRenderer(out)
	return promptStyles{
		separator: r.NewStyle().Faint(true),
		clock:     r.NewStyle().Italic(true),
		tokens:    r.NewStyle().Bold(true),
		arrow:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}),
	}
}

// render returns the separator line and the prompt, e.g.
// "────\n12:04:55 1532 ❯ ".
func (s promptStyles) render(width int, now time.Time, tokens int64, haveTokens bool) string {
	if width < 1 {
		width = 1
	}
	count := "n/a"
	if haveTokens {
		count = strconv.FormatInt(tokens, 10)
	}
	var b strings.Builder
	b.WriteString(s.separator.Render(strings.Repeat("─", width)))
	b.WriteByte('\n')
	b.WriteString(s.clock.Render(formatClock(now)))
	b.WriteByte(' ')
	b.WriteString(s.tokens.Render(count))
	b.WriteByte(' ')
	b.WriteString(s.arrow.Render("❯"))
	b.WriteByte(' ')
	return b.String()
}

func formatClock(t time.Time) string {
	return t.Format("15:04:05")
}

// newMarkdown builds the renderer for agent responses.
func newMarkdown(skin config.Skin, width int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch skin {
	case config.SkinLight:
		opts = append(opts, glamour.WithStandardStyle(styles.LightStyle))
	case config.SkinDark:
		opts = append(opts, glamour.WithStandardStyle(styles.DarkStyle))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}
	return glamour.NewTermRenderer(opts...)
}
