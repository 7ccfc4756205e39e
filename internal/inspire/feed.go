// Package inspire suggests campaign topics from industry feeds and from
// articles the user points at.
package inspire

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/CampaignCenter/internal/logger"
)

const (
	maxPerFeed         = 20
	maxConcurrentFeeds = 4
)

// Headline is one feed item offered as a topic idea.
type Headline struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary"`
}

// FeedSource represents a single feed configuration.
type FeedSource struct {
	URL  string
	Name string
}

// Inspirer reads feeds, news searches and articles.
type Inspirer struct {
	feeds     []FeedSource
	maxItems  int
	client    *http.Client
	news      *NewsAPIClient
	newsQuery string
}

// New creates an Inspirer. maxItems bounds the number of headlines returned.
func New(feeds []FeedSource, maxItems int, timeout time.Duration) *Inspirer {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if maxItems <= 0 {
		maxItems = 10
	}
	return &Inspirer{
		feeds:    feeds,
		maxItems: maxItems,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// UseNewsAPI adds a NewsAPI search to Headlines. defaultQuery is used when
// the caller gives no query.
func (in *Inspirer) UseNewsAPI(c *NewsAPIClient, defaultQuery string) {
	in.news = c
	in.newsQuery = defaultQuery
}

// SearchEnabled reports whether Headlines can search news by query.
func (in *Inspirer) SearchEnabled() bool {
	return in.news != nil && in.news.IsConfigured()
}

// Headlines returns the newest items across all feeds plus, when NewsAPI is
// configured, recent articles matching query. Sources that fail are logged
// and skipped.
func (in *Inspirer) Headlines(ctx context.Context, query string) []Headline {
	all := in.feedHeadlines(ctx)

	if in.SearchEnabled() {
		q := strings.TrimSpace(query)
		if q == "" {
			q = in.newsQuery
		}
		if q != "" {
			news, err := in.news.Search(ctx, q, 7, 50)
			if err != nil {
				logger.Log.WithField("query", q).Warnf("News search failed: %v", err)
			}
			all = append(all, news...)
		}
	}

	seen := make(map[string]struct{}, len(all))
	unique := all[:0]
	for _, h := range all {
		if _, ok := seen[h.URL]; ok {
			continue
		}
		seen[h.URL] = struct{}{}
		unique = append(unique, h)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Published.After(unique[j].Published)
	})
	if len(unique) > in.maxItems {
		unique = unique[:in.maxItems]
	}
	return unique
}

func (in *Inspirer) feedHeadlines(ctx context.Context) []Headline {
	perFeed := make([][]Headline, len(in.feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)
	for i, fs := range in.feeds {
		g.Go(func() error {
			perFeed[i] = in.parseFeed(gctx, fs)
			return nil
		})
	}
	g.Wait()

	var all []Headline
	for _, hs := range perFeed {
		all = append(all, hs...)
	}
	return all
}

// parseFeed returns up to maxPerFeed headlines from one feed. Failures are
// logged and yield nothing.
func (in *Inspirer) parseFeed(ctx context.Context, fs FeedSource) []Headline {
	name := fs.Name
	if name == "" {
		name = extractSourceName(fs.URL)
	}

	parser := gofeed.NewParser()
	parser.Client = in.client
	parser.UserAgent = userAgent

	feed, err := parser.ParseURLWithContext(fs.URL, ctx)
	if err != nil {
		logger.Log.WithField("feed", fs.URL).Warnf("Failed to parse feed: %v", err)
		return nil
	}

	var out []Headline
	for _, item := range feed.Items {
		if len(out) >= maxPerFeed {
			break
		}
		if h := parseItem(item, name); h != nil {
			out = append(out, *h)
		}
	}
	logger.Log.Debugf("Parsed %d headlines from %s", len(out), name)
	return out
}

func parseItem(item *gofeed.Item, source string) *Headline {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if itemURL == "" || title == "" {
		return nil
	}

	h := &Headline{Title: title, URL: itemURL, Source: source}
	if item.PublishedParsed != nil {
		h.Published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		h.Published = *item.UpdatedParsed
	}

	if item.Description != "" {
		h.Summary = truncate(stripHTML(item.Description), 280)
	} else if item.Content != "" {
		h.Summary = truncate(stripHTML(item.Content), 280)
	}
	return h
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(result.String())

	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		host = parts[len(parts)-2]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
