// Package markdown renders the restricted markdown subset produced by the
// campaign agents into structured blocks and inline spans.
package markdown

import "strings"

// emphasisMarker opens and closes an emphasized run.
const emphasisMarker = "**"

// SpanKind distinguishes plain text from emphasized text.
type SpanKind int

const (
	PlainText SpanKind = iota
	Emphasized
)

// Span is a run of inline text.
type Span struct {
	Kind SpanKind
	Text string
}

// Plain returns a PlainText span.
func Plain(text string) Span { return Span{Kind: PlainText, Text: text} }

// Strong returns an Emphasized span.
func Strong(text string) Span { return Span{Kind: Emphasized, Text: text} }

// FormatInline splits a single line into plain and emphasized spans.
//
// Emphasis only triggers on complete marker pairs, paired leftmost-first and
// without nesting. A line with no complete pair yields exactly one PlainText
// span holding the whole line, even when the line is empty. Empty plain
// segments between adjacent pairs or at the line edges are omitted.
func FormatInline(line string) []Span {
	var spans []Span
	rest := line
	for {
		open := strings.Index(rest, emphasisMarker)
		if open < 0 {
			break
		}
		inner := rest[open+len(emphasisMarker):]
		closing := strings.Index(inner, emphasisMarker)
		if closing < 0 {
			break
		}
		if open > 0 {
			spans = append(spans, Plain(rest[:open]))
		}
		spans = append(spans, Strong(inner[:closing]))
		rest = inner[closing+len(emphasisMarker):]
	}

	if spans == nil {
		return []Span{Plain(line)}
	}
	if rest != "" {
		spans = append(spans, Plain(rest))
	}
	return spans
}

// JoinSpans concatenates span text, dropping the emphasis markers.
func JoinSpans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
