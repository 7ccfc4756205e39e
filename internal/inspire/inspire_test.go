package inspire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Marketing News</title>
  <link>https://example.com</link>
  <description>news</description>
  <item>
    <title>Older story</title>
    <link>https://example.com/older</link>
    <pubDate>Mon, 02 Feb 2026 10:00:00 GMT</pubDate>
    <description>&lt;p&gt;Old &amp;amp; gold&lt;/p&gt;</description>
  </item>
  <item>
    <title>Newer story</title>
    <link>https://example.com/newer</link>
    <pubDate>Thu, 05 Feb 2026 10:00:00 GMT</pubDate>
    <description>Fresh ideas</description>
  </item>
  <item>
    <title>   </title>
    <link>https://example.com/untitled</link>
  </item>
</channel>
</rss>`

const testArticle = `<!DOCTYPE html>
<html>
<head><title>Green Energy Trends for Small Businesses</title></head>
<body>
<article>
<h1>Green Energy Trends for Small Businesses</h1>
<p>Solar adoption among small businesses has doubled over the past two years, driven by falling panel prices and generous incentives.</p>
<p>Owners report lower operating costs and a measurable lift in customer loyalty when they communicate their sustainability efforts clearly.</p>
<p>Analysts expect the trend to continue as financing options broaden and installation times shrink across most regions.</p>
</article>
</body>
</html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testArticle))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHeadlines(t *testing.T) {
	srv := newTestServer(t)
	in := New([]FeedSource{
		{URL: srv.URL + "/feed.xml", Name: "Test Feed"},
		{URL: srv.URL + "/broken"},
	}, 10, 5*time.Second)

	got := in.Headlines(context.Background(), "")
	if len(got) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(got))
	}
	if got[0].Title != "Newer story" || got[1].Title != "Older story" {
		t.Errorf("expected newest first, got %q then %q", got[0].Title, got[1].Title)
	}
	if got[0].Source != "Test Feed" {
		t.Errorf("expected source name, got %q", got[0].Source)
	}
	if got[1].Summary != "Old & gold" {
		t.Errorf("expected stripped summary, got %q", got[1].Summary)
	}
}

func TestHeadlinesMaxItems(t *testing.T) {
	srv := newTestServer(t)
	in := New([]FeedSource{{URL: srv.URL + "/feed.xml"}}, 1, time.Second)
	got := in.Headlines(context.Background(), "")
	if len(got) != 1 {
		t.Fatalf("expected 1 headline, got %d", len(got))
	}
	if got[0].Title != "Newer story" {
		t.Errorf("expected newest headline, got %q", got[0].Title)
	}
}

func TestTopicFromURL(t *testing.T) {
	srv := newTestServer(t)
	in := New(nil, 0, 5*time.Second)

	s, err := in.TopicFromURL(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(s.Topic, "Green Energy Trends") {
		t.Errorf("unexpected topic %q", s.Topic)
	}
	if s.Excerpt == "" {
		t.Error("expected an excerpt")
	}
	if s.URL != srv.URL+"/article" {
		t.Errorf("unexpected url %q", s.URL)
	}
}

func TestTopicFromURLErrors(t *testing.T) {
	srv := newTestServer(t)
	in := New(nil, 0, time.Second)

	for _, u := range []string{"", "not a url", "ftp://example.com/x", srv.URL + "/broken"} {
		if _, err := in.TopicFromURL(context.Background(), u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestExtractSourceName(t *testing.T) {
	tests := map[string]string{
		"https://www.marketingweek.com/feed/":         "Marketingweek",
		"https://blog.hubspot.com/marketing/rss.xml":  "Hubspot",
		"https://feeds.hbr.org/harvardbusiness":       "Hbr",
		"http://localhost:8080/feed":                  "Localhost",
	}
	for in, want := range tests {
		if got := extractSourceName(in); got != want {
			t.Errorf("extractSourceName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello&nbsp;<b>world</b></p>\n")
	if got != "Hello world" {
		t.Errorf("unexpected %q", got)
	}
}

func TestNewsAPISearch(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte(`{"status":"ok","articles":[
			{"url":"https://news.example.com/a","title":"Loyalty programs rebound","publishedAt":"2026-02-05T08:00:00Z","description":"Retailers double down","source":{"name":"Retail Daily"}},
			{"url":"https://removed.com","title":"[Removed]"},
			{"url":"","title":"no url"}
		]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_NEWSAPI_KEY", "k")
	c := NewNewsAPIClient("TEST_NEWSAPI_KEY")
	c.baseURL = srv.URL

	got, err := c.Search(context.Background(), "loyalty", 7, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "loyalty" || gotKey != "k" {
		t.Errorf("unexpected request q=%q key=%q", gotQuery, gotKey)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 headline, got %d", len(got))
	}
	if got[0].Source != "Retail Daily" || got[0].Published.IsZero() {
		t.Errorf("unexpected headline %+v", got[0])
	}
}

func TestNewsAPINotConfigured(t *testing.T) {
	t.Setenv("TEST_NEWSAPI_KEY", "")
	c := NewNewsAPIClient("TEST_NEWSAPI_KEY")
	if c.IsConfigured() {
		t.Error("expected client without key to be unconfigured")
	}
	if _, err := c.Search(context.Background(), "x", 1, 10); err == nil {
		t.Error("expected error without key")
	}
}

func TestHeadlinesMergesNews(t *testing.T) {
	feedSrv := newTestServer(t)
	var gotQuery string
	newsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`{"status":"ok","articles":[
			{"url":"https://example.com/newer","title":"Duplicate of feed item","publishedAt":"2026-02-05T10:00:00Z"},
			{"url":"https://news.example.com/latest","title":"Latest news","publishedAt":"2026-02-06T10:00:00Z"}
		]}`))
	}))
	defer newsSrv.Close()

	t.Setenv("TEST_NEWSAPI_KEY", "k")
	c := NewNewsAPIClient("TEST_NEWSAPI_KEY")
	c.baseURL = newsSrv.URL

	in := New([]FeedSource{{URL: feedSrv.URL + "/feed.xml"}}, 10, time.Second)
	in.UseNewsAPI(c, "marketing")
	if !in.SearchEnabled() {
		t.Fatal("expected search to be enabled")
	}

	got := in.Headlines(context.Background(), "")
	if gotQuery != "marketing" {
		t.Errorf("expected default query, got %q", gotQuery)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique headlines, got %d", len(got))
	}
	if got[0].Title != "Latest news" {
		t.Errorf("expected newest first, got %q", got[0].Title)
	}

	in.Headlines(context.Background(), "  loyalty ")
	if gotQuery != "loyalty" {
		t.Errorf("expected explicit query, got %q", gotQuery)
	}
}
