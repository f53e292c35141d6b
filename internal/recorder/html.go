package recorder

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/dshills/ptyagent/internal/escape"
	"github.com/dshills/ptyagent/internal/terminal"
)

//go:embed session.html.tmpl
var sessionTemplateText string

var sessionTemplate = template.Must(template.New("session").Parse(sessionTemplateText))

// Colors used for cells that carry the terminal's default colors.
var (
	defaultFg = colorful.Color{R: 0.85, G: 0.85, B: 0.85}
	defaultBg = colorful.Color{R: 0.11, G: 0.11, B: 0.12}
)

// markdownPolicy strips anything unsafe from rendered assistant markdown.
var markdownPolicy = bluemonday.UGCPolicy()

type htmlPage struct {
	SessionID   string
	Started     string
	Generated   string
	UserInputs  int
	Turns       int
	Responses   int
	Items       []htmlItem
	Final       *htmlScreen
	SessionJSON template.JS
}

type htmlItem struct {
	Number int
	Class  string
	Title  string
	Time   string

	// Exactly one of the following is set.
	Text string
	Body template.HTML
	Turn *htmlTurn
}

type htmlTurn struct {
	Origin  string
	Outcome string
	Sent    bool
	Input   string
	Delay   string
	Screen  htmlScreen
}

type htmlScreen struct {
	Rows   []template.HTML
	Cursor string
	Title  string
	Alt    bool
}

func renderHTML(doc Document) ([]byte, error) {
	data, err := marshalDocument(doc)
	if err != nil {
		return nil, err
	}

	page := htmlPage{
		SessionID:   doc.SessionID,
		Started:     formatTime(doc.StartedAt),
		Generated:   formatTime(time.Now()),
		Turns:       len(doc.Turns),
		SessionJSON: template.JS(data),
	}

	next := 0
	addEvents := func(upTo int) {
		for next < len(doc.Events) && doc.Events[next].AfterTurn <= upTo {
			page.Items = append(page.Items, eventItem(len(page.Items)+1, doc.Events[next]))
			switch doc.Events[next].Kind {
			case EventUserInput:
				page.UserInputs++
			case EventAssistant:
				page.Responses++
			}
			next++
		}
	}
	for i, turn := range doc.Turns {
		addEvents(i)
		page.Items = append(page.Items, turnItem(len(page.Items)+1, turn))
	}
	addEvents(len(doc.Turns))

	if doc.Final != nil {
		screen := renderScreen(*doc.Final)
		page.Final = &screen
	}

	var buf bytes.Buffer
	if err := sessionTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render session html: %w", err)
	}
	return buf.Bytes(), nil
}

func eventItem(n int, ev Event) htmlItem {
	item := htmlItem{Number: n, Time: formatTime(ev.Time)}
	switch ev.Kind {
	case EventAssistant:
		item.Class = "assistant"
		item.Title = "Assistant Response"
		item.Body = renderMarkdown(ev.Text)
	default:
		item.Class = "user"
		item.Title = "User Input"
		item.Text = ev.Text
	}
	return item
}

func turnItem(n int, t Turn) htmlItem {
	title := fmt.Sprintf("Turn %d: raw_input", t.Index)
	if t.Origin == OriginOperator {
		title = fmt.Sprintf("Turn %d: :raw", t.Index)
	}
	return htmlItem{
		Number: n,
		Class:  "tool",
		Title:  title,
		Time:   formatTime(t.Time),
		Turn: &htmlTurn{
			Origin:  string(t.Origin),
			Outcome: string(t.Outcome),
			Sent:    t.Outcome.Sent(),
			Input:   escape.Encode(t.Input),
			Delay:   t.Delay.String(),
			Screen:  renderScreen(t.Snapshot),
		},
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05.000 MST")
}

// renderMarkdown converts markdown to sanitized HTML. On failure the source is
// shown escaped.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(markdownPolicy.SanitizeBytes(buf.Bytes()))
}

// renderScreen turns a snapshot into one HTML fragment per row, grouping runs
// of identically styled cells into a single span.
func renderScreen(snap terminal.Snapshot) htmlScreen {
	screen := htmlScreen{
		Title: snap.Title,
		Alt:   snap.AltScreen,
	}
	if snap.Cursor.Visible {
		screen.Cursor = fmt.Sprintf("row %d, col %d", snap.Cursor.Row, snap.Cursor.Col)
	} else {
		screen.Cursor = "hidden"
	}

	for row, cells := range snap.Cells {
		var sb strings.Builder
		var run strings.Builder
		runStyle := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			fmt.Fprintf(&sb, `<span style="%s">%s</span>`, runStyle, template.HTMLEscapeString(run.String()))
			run.Reset()
		}
		for col, c := range cells {
			if col > 0 && cells[col-1].Width == 2 {
				continue
			}
			style := cellCSS(c)
			isCursor := snap.Cursor.Visible && row == snap.Cursor.Row && col == snap.Cursor.Col
			if isCursor {
				flush()
				fmt.Fprintf(&sb, `<span class="cursor" style="%s">%s</span>`, style, template.HTMLEscapeString(string(c.Char())))
				runStyle = ""
				continue
			}
			if style != runStyle {
				flush()
				runStyle = style
			}
			run.WriteRune(c.Char())
		}
		flush()
		screen.Rows = append(screen.Rows, template.HTML(sb.String()))
	}
	return screen
}

// cellCSS returns the inline style for a cell.
func cellCSS(c terminal.Cell) string {
	fg := toColorful(c.Fg, defaultFg)
	bg := toColorful(c.Bg, defaultBg)
	if c.Attrs.Has(terminal.AttrInverse) {
		fg, bg = bg, fg
	}
	if c.Attrs.Has(terminal.AttrDim) {
		fg = fg.BlendLab(bg, 0.4).Clamped()
	}
	if c.Attrs.Has(terminal.AttrHidden) {
		fg = bg
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "color:%s;background:%s", fg.Hex(), bg.Hex())
	if c.Attrs.Has(terminal.AttrBold) {
		sb.WriteString(";font-weight:bold")
	}
	if c.Attrs.Has(terminal.AttrItalic) {
		sb.WriteString(";font-style:italic")
	}
	var deco []string
	if c.Attrs.Has(terminal.AttrUnderline) {
		deco = append(deco, "underline")
	}
	if c.Attrs.Has(terminal.AttrStrike) {
		deco = append(deco, "line-through")
	}
	if len(deco) > 0 {
		sb.WriteString(";text-decoration:" + strings.Join(deco, " "))
	}
	return sb.String()
}

func toColorful(c terminal.Color, fallback colorful.Color) colorful.Color {
	if c == terminal.DefaultColor {
		return fallback
	}
	r, g, b := c.RGB()
	if r < 0 {
		return fallback
	}
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}
