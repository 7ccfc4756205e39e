package campaign

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Paths into the coordinating agent's reply envelope.
const (
	resultPath      = "response.result"
	artifactsPath   = "module_outputs.artifact_files"
	contentKey      = "content_writer"
	seoKey          = "seo_analyst"
	graphicsKey     = "graphics_designer"
	artifactURLPath = "file_url"
)

// Normalize maps a raw agent reply into a Result. It never fails: missing,
// null or wrongly typed values at any depth collapse to their zero value.
func Normalize(raw []byte, topic string, now time.Time) Result {
	var doc gjson.Result
	if gjson.ValidBytes(raw) {
		doc = gjson.ParseBytes(LastKeyWins(raw))
	}

	agents := object(doc.Get(resultPath))

	return Result{
		Topic:     topic,
		Timestamp: now,
		Content:   normalizeContent(object(agents.Get(contentKey))),
		SEO:       normalizeSEO(object(agents.Get(seoKey))),
		Graphics:  normalizeGraphics(object(agents.Get(graphicsKey))),
		Images:    artifactURLs(doc.Get(artifactsPath)),
	}
}

// LastKeyWins re-encodes a valid JSON document so that an object key that
// appears more than once keeps its last value. Invalid input is returned
// unchanged.
func LastKeyWins(raw []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

func normalizeContent(c gjson.Result) Content {
	social := object(c.Get("social_media_posts"))
	email := object(c.Get("email_content"))
	return Content{
		BlogPost: str(c.Get("blog_post")),
		Social: SocialPosts{
			LinkedIn:  str(social.Get("linkedin")),
			Twitter:   str(social.Get("twitter")),
			Facebook:  str(social.Get("facebook")),
			Instagram: str(social.Get("instagram")),
		},
		Email: Email{
			Subject: str(email.Get("subject_line")),
			Preview: str(email.Get("preview_text")),
			Body:    str(email.Get("body")),
		},
		KeyMessages: strs(c.Get("key_messages")),
		CTAs:        strs(c.Get("cta_recommendations")),
	}
}

func normalizeSEO(s gjson.Result) SEO {
	headings := object(s.Get("heading_structure"))
	out := SEO{
		PrimaryKeywords:   strs(s.Get("primary_keywords")),
		SecondaryKeywords: strs(s.Get("secondary_keywords")),
		MetaTitle:         str(s.Get("meta_title")),
		MetaDescription:   str(s.Get("meta_description")),
		Headings: Headings{
			H1: str(headings.Get("h1")),
			H2: strs(headings.Get("h2_suggestions")),
			H3: strs(headings.Get("h3_suggestions")),
		},
		Readability:     str(s.Get("readability_score")),
		Recommendations: strs(s.Get("optimization_recommendations")),
		InternalLinks:   strs(s.Get("internal_link_suggestions")),
		Improvements:    strs(s.Get("content_improvements")),
	}
	if score := s.Get("seo_score"); score.Type == gjson.Number {
		out.Score = min(max(score.Float(), 0), 100)
		out.Scored = true
	}
	return out
}

func normalizeGraphics(g gjson.Result) Graphics {
	social := object(g.Get("social_graphics"))
	return Graphics{
		BlogHeader: str(g.Get("blog_header")),
		Social: SocialGraphics{
			LinkedIn:  str(social.Get("linkedin_graphic")),
			Twitter:   str(social.Get("twitter_graphic")),
			Facebook:  str(social.Get("facebook_graphic")),
			Instagram: str(social.Get("instagram_graphic")),
		},
		Banner:       str(g.Get("promotional_banner")),
		Rationale:    str(g.Get("design_rationale")),
		ColorPalette: strs(g.Get("color_palette")),
	}
}

// artifactURLs extracts file_url from each artifact, dropping empty and
// non-string references while keeping order.
func artifactURLs(files gjson.Result) []string {
	urls := []string{}
	if !files.IsArray() {
		return urls
	}
	files.ForEach(func(_, f gjson.Result) bool {
		if u := f.Get(artifactURLPath); u.Type == gjson.String && u.Str != "" {
			urls = append(urls, u.Str)
		}
		return true
	})
	return urls
}

func object(r gjson.Result) gjson.Result {
	if r.IsObject() {
		return r
	}
	return gjson.Result{}
}

func str(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return ""
}

// strs keeps the string elements of an array; anything else yields an
// empty list.
func strs(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	r.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			out = append(out, v.Str)
		}
		return true
	})
	return out
}
