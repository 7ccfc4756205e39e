package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
	"github.com/TobiSchelling/CampaignCenter/internal/markdown"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)

	scoreStyles = map[string]lipgloss.Style{
		"good": lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")),
		"fair": lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04")),
		"poor": lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")),
	}
)

// printResult writes a terminal view of r. Empty parts are skipped.
func printResult(w io.Writer, r *campaign.Result) {
	fmt.Fprintf(w, "\n%s\n%s\n", titleStyle.Render(r.Topic), strings.Repeat("=", len([]rune(r.Topic))))
	fmt.Fprintln(w, mutedStyle.Render("Generated "+r.Timestamp.Format("Jan 2, 2006 15:04")))

	heading := func(title string) {
		fmt.Fprintf(w, "\n%s\n%s\n", sectionStyle.Render(title), strings.Repeat("-", len(title)))
	}
	text := func(s string) {
		fmt.Fprint(w, markdown.Terminal(markdown.Render(s)))
	}
	list := func(items []string) {
		for _, it := range items {
			fmt.Fprintf(w, "  • %s\n", it)
		}
	}

	c := r.Content
	if c.BlogPost != "" {
		heading("Blog post")
		text(c.BlogPost)
	}

	posts := []struct{ name, text string }{
		{"LinkedIn", c.Social.LinkedIn},
		{"Twitter", c.Social.Twitter},
		{"Facebook", c.Social.Facebook},
		{"Instagram", c.Social.Instagram},
	}
	printedSocial := false
	for _, p := range posts {
		if p.text == "" {
			continue
		}
		if !printedSocial {
			heading("Social media")
			printedSocial = true
		}
		fmt.Fprintln(w, labelStyle.Render("["+p.name+"]"))
		text(p.text)
		fmt.Fprintln(w)
	}

	if c.Email.Subject != "" || c.Email.Body != "" {
		heading("Email")
		fmt.Fprintf(w, "Subject: %s\n", c.Email.Subject)
		if c.Email.Preview != "" {
			fmt.Fprintf(w, "Preview: %s\n", c.Email.Preview)
		}
		fmt.Fprintln(w)
		text(c.Email.Body)
	}

	if len(c.KeyMessages) > 0 {
		heading("Key messages")
		list(c.KeyMessages)
	}
	if len(c.CTAs) > 0 {
		heading("Calls to action")
		list(c.CTAs)
	}

	heading("SEO")
	if r.SEO.Scored {
		score := r.QualityScore()
		class := campaign.ScoreClass(score)
		fmt.Fprintln(w, scoreStyles[class].Render(fmt.Sprintf("Score: %d/100 (%s)", score, class)))
	} else {
		fmt.Fprintln(w, mutedStyle.Render("Score: not scored"))
	}
	if r.SEO.MetaTitle != "" {
		fmt.Fprintf(w, "Meta title: %s\n", r.SEO.MetaTitle)
	}
	if len(r.SEO.PrimaryKeywords) > 0 {
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(r.SEO.PrimaryKeywords, ", "))
	}

	g := r.Graphics
	if g.BlogHeader != "" || len(g.ColorPalette) > 0 || len(r.Images) > 0 {
		heading("Graphics")
		if g.BlogHeader != "" {
			text(g.BlogHeader)
		}
		if len(g.ColorPalette) > 0 {
			fmt.Fprintf(w, "Palette: %s\n", strings.Join(g.ColorPalette, " "))
		}
		list(r.Images)
	}
}
