// Package export turns a campaign result into a single shareable document.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown assembles every deliverable of r into one markdown document.
// Empty sections are left out.
func Markdown(r *campaign.Result) string {
	sections := []string{
		fmt.Sprintf("# Campaign: %s\n\n_Generated %s_", r.Topic, r.Timestamp.Format("January 2, 2006 15:04")),
	}
	add := func(s string) {
		if s != "" {
			sections = append(sections, s)
		}
	}

	c := r.Content
	add(section("## Blog Post", c.BlogPost))
	add(group("## Social Media",
		section("### LinkedIn", c.Social.LinkedIn),
		section("### Twitter", c.Social.Twitter),
		section("### Facebook", c.Social.Facebook),
		section("### Instagram", c.Social.Instagram),
	))
	add(group("## Email",
		field("Subject", c.Email.Subject),
		field("Preview", c.Email.Preview),
		c.Email.Body,
	))
	add(bullets("## Key Messages", c.KeyMessages))
	add(bullets("## Calls to Action", c.CTAs))

	s := r.SEO
	score := "Not scored"
	if s.Scored {
		score = fmt.Sprintf("%d/100", r.QualityScore())
	}
	add(group("## SEO Analysis",
		field("Score", score),
		field("Meta title", s.MetaTitle),
		field("Meta description", s.MetaDescription),
		field("Readability", s.Readability),
		bullets("### Primary Keywords", s.PrimaryKeywords),
		bullets("### Secondary Keywords", s.SecondaryKeywords),
		headings(s.Headings),
		bullets("### Recommendations", s.Recommendations),
		bullets("### Internal Links", s.InternalLinks),
		bullets("### Content Improvements", s.Improvements),
	))

	g := r.Graphics
	add(group("## Graphics",
		section("### Blog Header", g.BlogHeader),
		group("### Social Graphics",
			field("LinkedIn", g.Social.LinkedIn),
			field("Twitter", g.Social.Twitter),
			field("Facebook", g.Social.Facebook),
			field("Instagram", g.Social.Instagram),
		),
		section("### Promotional Banner", g.Banner),
		section("### Design Rationale", g.Rationale),
		palette(g.ColorPalette),
		images(r.Images),
	))

	return strings.Join(sections, "\n\n---\n\n") + "\n"
}

var page = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Campaign: {{.Topic}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; color: #1f2937; }
hr { border: 0; border-top: 1px solid #e5e7eb; margin: 2rem 0; }
table { border-collapse: collapse; }
td, th { border: 1px solid #e5e7eb; padding: .25rem .75rem; }
img { max-width: 100%; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders Markdown(r) as a standalone HTML page. Raw HTML inside
// generated text is not passed through.
func HTML(r *campaign.Result) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, map[string]any{
		"Topic": r.Topic,
		"Body":  template.HTML(body.String()), //nolint: gosec
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

func section(heading, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return heading + "\n\n" + text
}

// group keeps heading only when at least one part is non-empty.
func group(heading string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return heading + "\n\n" + strings.Join(kept, "\n\n")
}

func field(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return fmt.Sprintf("**%s:** %s", label, value)
}

func bullets(heading string, items []string) string {
	var lines []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			lines = append(lines, "- "+it)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return heading + "\n\n" + strings.Join(lines, "\n")
}

func headings(h campaign.Headings) string {
	var lines []string
	if h.H1 != "" {
		lines = append(lines, "- H1: "+h.H1)
	}
	for _, s := range h.H2 {
		lines = append(lines, "- H2: "+s)
	}
	for _, s := range h.H3 {
		lines = append(lines, "- H3: "+s)
	}
	if len(lines) == 0 {
		return ""
	}
	return "### Heading Structure\n\n" + strings.Join(lines, "\n")
}

func palette(colors []string) string {
	if len(colors) == 0 {
		return ""
	}
	rows := []string{"| Color |", "| --- |"}
	for _, c := range colors {
		rows = append(rows, fmt.Sprintf("| `%s` |", c))
	}
	return "### Color Palette\n\n" + strings.Join(rows, "\n")
}

func images(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	lines := make([]string, len(urls))
	for i, u := range urls {
		lines[i] = fmt.Sprintf("![Campaign graphic %d](%s)", i+1, u)
	}
	return "### Images\n\n" + strings.Join(lines, "\n\n")
}
