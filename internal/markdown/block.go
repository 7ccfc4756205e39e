package markdown

import (
	"regexp"
	"strings"
)

// BlockKind identifies the line-level shape of a block.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	ListItem
	Spacer
)

func (k BlockKind) String() string {
	switch k {
	case Heading:
		return "heading"
	case ListItem:
		return "list_item"
	case Spacer:
		return "spacer"
	default:
		return "paragraph"
	}
}

// Block is one rendered line.
// Level is set for headings (1-3); Ordered is set for list items.
// Spacers carry no spans.
type Block struct {
	Kind    BlockKind
	Level   int
	Ordered bool
	Spans   []Span
}

// Text returns the block's text without markers.
func (b Block) Text() string {
	return JoinSpans(b.Spans)
}

var orderedPrefix = regexp.MustCompile(`^[0-9]+\.\s`)

// lineRule classifies one line. It reports false when the line does not match.
type lineRule func(line string) (Block, bool)

// rules are tried in order; the first match wins.
var rules = []lineRule{
	headingRule("### ", 3),
	headingRule("## ", 2),
	headingRule("# ", 1),
	bulletRule,
	orderedRule,
	spacerRule,
}

func headingRule(prefix string, level int) lineRule {
	return func(line string) (Block, bool) {
		rest, ok := strings.CutPrefix(line, prefix)
		if !ok {
			return Block{}, false
		}
		return Block{Kind: Heading, Level: level, Spans: FormatInline(rest)}, true
	}
}

func bulletRule(line string) (Block, bool) {
	if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
		return Block{}, false
	}
	return Block{Kind: ListItem, Spans: FormatInline(line[2:])}, true
}

func orderedRule(line string) (Block, bool) {
	loc := orderedPrefix.FindStringIndex(line)
	if loc == nil {
		return Block{}, false
	}
	return Block{Kind: ListItem, Ordered: true, Spans: FormatInline(line[loc[1]:])}, true
}

func spacerRule(line string) (Block, bool) {
	if strings.TrimSpace(line) != "" {
		return Block{}, false
	}
	return Block{Kind: Spacer}, true
}

// Render classifies each line of text into a block, preserving line order.
// Empty input yields no blocks. A trailing carriage return on a line is
// dropped before classification.
func Render(text string) []Block {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classify(strings.TrimSuffix(line, "\r")))
	}
	return blocks
}

func classify(line string) Block {
	for _, rule := range rules {
		if b, ok := rule(line); ok {
			return b
		}
	}
	return Block{Kind: Paragraph, Spans: FormatInline(line)}
}
