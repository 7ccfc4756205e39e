package inspire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const userAgent = "CampaignCenter/1.0 (topic research)"

// maxPageBytes bounds how much of an article page is read.
const maxPageBytes = 8 << 20

// Suggestion is a topic proposed from an article.
type Suggestion struct {
	Topic   string `json:"topic"`
	Excerpt string `json:"excerpt"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

// TopicFromURL extracts the article at rawURL and proposes its title as the
// campaign topic.
func (in *Inspirer) TopicFromURL(ctx context.Context, rawURL string) (*Suggestion, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid article URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching article: %s", http.StatusText(resp.StatusCode))
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return nil, fmt.Errorf("extracting article: %w", err)
	}

	topic := strings.Join(strings.Fields(article.Title), " ")
	if topic == "" {
		return nil, fmt.Errorf("no title found at %s", u)
	}

	excerpt := strings.TrimSpace(article.Excerpt)
	if excerpt == "" {
		excerpt = truncate(strings.Join(strings.Fields(article.TextContent), " "), 280)
	}
	source := article.SiteName
	if source == "" {
		source = extractSourceName(u.String())
	}

	return &Suggestion{Topic: topic, Excerpt: excerpt, Source: source, URL: u.String()}, nil
}
