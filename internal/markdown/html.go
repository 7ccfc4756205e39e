package markdown

import (
	"fmt"
	"html"
	"html/template"
	"strings"
)

// HTML renders blocks for the dashboard. Consecutive list items of the same
// kind are wrapped in a single list element.
func HTML(blocks []Block) template.HTML {
	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="md">`)
	openList := ""
	closeList := func() {
		if openList != "" {
			fmt.Fprintf(&b, "</%s>", openList)
			openList = ""
		}
	}

	for _, blk := range blocks {
		if blk.Kind != ListItem {
			closeList()
		}
		switch blk.Kind {
		case Heading:
			// Level 1 maps to h2; the page title owns h1.
			tag := fmt.Sprintf("h%d", blk.Level+1)
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, inlineHTML(blk.Spans), tag)
		case ListItem:
			want := "ul"
			if blk.Ordered {
				want = "ol"
			}
			if openList != want {
				closeList()
				fmt.Fprintf(&b, "<%s>", want)
				openList = want
			}
			fmt.Fprintf(&b, "<li>%s</li>", inlineHTML(blk.Spans))
		case Spacer:
			b.WriteString(`<div class="spacer"></div>`)
		default:
			fmt.Fprintf(&b, "<p>%s</p>", inlineHTML(blk.Spans))
		}
	}
	closeList()
	b.WriteString(`</div>`)

	return template.HTML(b.String()) //nolint: gosec
}

// RenderHTML renders markdown text straight to HTML.
func RenderHTML(text string) template.HTML {
	return HTML(Render(text))
}

func inlineHTML(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Kind == Emphasized {
			b.WriteString("<strong>")
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString("</strong>")
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
	return b.String()
}

// Terminal renders blocks for a terminal: headings are underlined, list
// items get a bullet or their position in the run, and emphasis markers are
// dropped.
func Terminal(blocks []Block) string {
	var b strings.Builder
	n := 0
	for _, blk := range blocks {
		text := blk.Text()
		switch blk.Kind {
		case Heading:
			n = 0
			b.WriteString(text + "\n")
			underline := "="
			if blk.Level > 1 {
				underline = "-"
			}
			b.WriteString(strings.Repeat(underline, len([]rune(text))) + "\n")
		case ListItem:
			if blk.Ordered {
				n++
				fmt.Fprintf(&b, "  %d. %s\n", n, text)
			} else {
				n = 0
				b.WriteString("  • " + text + "\n")
			}
		case Spacer:
			n = 0
			b.WriteString("\n")
		default:
			n = 0
			b.WriteString(text + "\n")
		}
	}
	return b.String()
}
