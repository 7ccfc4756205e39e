// Package campaign holds the campaign data model, the brief sent to the
// coordinating agent, and the normalization of its loosely typed replies.
package campaign

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrEmptyTopic is returned when a request has no usable topic.
var ErrEmptyTopic = errors.New("campaign topic is empty")

// Audience is the target audience of a campaign.
type Audience string

const (
	AudienceB2B       Audience = "B2B"
	AudienceB2C       Audience = "B2C"
	AudienceTechnical Audience = "Technical"
	AudienceGeneral   Audience = "General"
)

// Audiences lists every audience in display order.
var Audiences = []Audience{AudienceB2B, AudienceB2C, AudienceTechnical, AudienceGeneral}

// BrandVoice is the tone the generated content should take.
type BrandVoice string

const (
	VoiceProfessional  BrandVoice = "Professional"
	VoiceCasual        BrandVoice = "Casual"
	VoicePlayful       BrandVoice = "Playful"
	VoiceAuthoritative BrandVoice = "Authoritative"
)

// BrandVoices lists every voice in display order.
var BrandVoices = []BrandVoice{VoiceProfessional, VoiceCasual, VoicePlayful, VoiceAuthoritative}

// ContentType is a deliverable the campaign should include.
type ContentType string

const (
	ContentBlog   ContentType = "Blog"
	ContentSocial ContentType = "Social"
	ContentEmail  ContentType = "Email"
	ContentAdCopy ContentType = "Ad Copy"
)

// ContentTypes lists every content type in display order.
var ContentTypes = []ContentType{ContentBlog, ContentSocial, ContentEmail, ContentAdCopy}

// ParseAudience matches s case-insensitively against the known audiences.
func ParseAudience(s string) (Audience, error) {
	for _, a := range Audiences {
		if strings.EqualFold(strings.TrimSpace(s), string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown audience %q", s)
}

// ParseBrandVoice matches s case-insensitively against the known voices.
func ParseBrandVoice(s string) (BrandVoice, error) {
	for _, v := range BrandVoices {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown brand voice %q", s)
}

// ParseContentType accepts the display name or its unspaced form ("AdCopy").
func ParseContentType(s string) (ContentType, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	for _, c := range ContentTypes {
		if strings.EqualFold(norm, strings.ReplaceAll(string(c), " ", "")) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// Request is one campaign brief as submitted by the user.
type Request struct {
	Topic        string
	Audience     Audience
	ContentTypes []ContentType
	BrandVoice   BrandVoice
}

// DefaultRequest is the blank dashboard form.
func DefaultRequest() Request {
	return Request{
		Audience:     AudienceB2B,
		ContentTypes: []ContentType{ContentBlog, ContentSocial},
		BrandVoice:   VoiceProfessional,
	}
}

// Validate rejects requests whose topic is empty or whitespace.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	return nil
}

// Has reports whether the request includes content type c.
func (r Request) Has(c ContentType) bool {
	for _, t := range r.ContentTypes {
		if t == c {
			return true
		}
	}
	return false
}

// Toggle adds c when absent and removes it when present, keeping the
// insertion order of the remaining types.
func (r Request) Toggle(c ContentType) Request {
	out := make([]ContentType, 0, len(r.ContentTypes)+1)
	found := false
	for _, t := range r.ContentTypes {
		if t == c {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		out = append(out, c)
	}
	r.ContentTypes = out
	return r
}

// SocialPosts holds one post per platform.
type SocialPosts struct {
	LinkedIn  string `json:"linkedin"`
	Twitter   string `json:"twitter"`
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
}

// Email holds the generated email fields.
type Email struct {
	Subject string `json:"subject_line"`
	Preview string `json:"preview_text"`
	Body    string `json:"body"`
}

// Content is the content writer's deliverable.
type Content struct {
	BlogPost    string      `json:"blog_post"`
	Social      SocialPosts `json:"social_media_posts"`
	Email       Email       `json:"email_content"`
	KeyMessages []string    `json:"key_messages"`
	CTAs        []string    `json:"cta_recommendations"`
}

// Headings is the suggested heading structure.
type Headings struct {
	H1 string   `json:"h1"`
	H2 []string `json:"h2_suggestions"`
	H3 []string `json:"h3_suggestions"`
}

// SEO is the SEO analyst's deliverable. Score is 0 unless Scored is set.
type SEO struct {
	PrimaryKeywords   []string `json:"primary_keywords"`
	SecondaryKeywords []string `json:"secondary_keywords"`
	MetaTitle         string   `json:"meta_title"`
	MetaDescription   string   `json:"meta_description"`
	Headings          Headings `json:"heading_structure"`
	Readability       string   `json:"readability_score"`
	Score             float64  `json:"seo_score"`
	Scored            bool     `json:"seo_scored"`
	Recommendations   []string `json:"optimization_recommendations"`
	InternalLinks     []string `json:"internal_link_suggestions"`
	Improvements      []string `json:"content_improvements"`
}

// SocialGraphics holds one design description per platform.
type SocialGraphics struct {
	LinkedIn  string `json:"linkedin_graphic"`
	Twitter   string `json:"twitter_graphic"`
	Facebook  string `json:"facebook_graphic"`
	Instagram string `json:"instagram_graphic"`
}

// Graphics is the graphics designer's deliverable.
type Graphics struct {
	BlogHeader   string         `json:"blog_header"`
	Social       SocialGraphics `json:"social_graphics"`
	Banner       string         `json:"promotional_banner"`
	Rationale    string         `json:"design_rationale"`
	ColorPalette []string       `json:"color_palette"`
}

// Result is the normalized outcome of one generation cycle. Every field has
// a usable zero value; consumers never need to nil-check a branch.
type Result struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Content   Content   `json:"content"`
	SEO       SEO       `json:"seo"`
	Graphics  Graphics  `json:"graphics"`
	Images    []string  `json:"graphics_images"`
}

// DefaultQualityScore is used when the SEO analyst returned no numeric score.
const DefaultQualityScore = 75

// QualityScore is the history score for this result.
func (r Result) QualityScore() int {
	if !r.SEO.Scored {
		return DefaultQualityScore
	}
	return clampScore(r.SEO.Score)
}

func clampScore(f float64) int {
	switch {
	case f <= 0:
		return 0
	case f >= 100:
		return 100
	}
	return int(math.Round(f))
}

// HistoryEntry records one successful generation.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Timestamp    time.Time `json:"timestamp"`
	QualityScore int       `json:"quality_score"`
}

// ScoreClass buckets a score for display: good (>=80), fair (>=50) or poor.
func ScoreClass(score int) string {
	switch {
	case score >= 80:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}

// Template is a quick-start preset for the dashboard form.
type Template struct {
	Title    string     `yaml:"title"`
	Audience Audience   `yaml:"audience"`
	Voice    BrandVoice `yaml:"voice"`
}

// DefaultTemplates are offered when none are configured.
var DefaultTemplates = []Template{
	{Title: "Product Launch", Audience: AudienceB2B, Voice: VoiceProfessional},
	{Title: "Seasonal Promotion", Audience: AudienceB2C, Voice: VoicePlayful},
	{Title: "Thought Leadership", Audience: AudienceTechnical, Voice: VoiceAuthoritative},
	{Title: "Customer Success Story", Audience: AudienceGeneral, Voice: VoiceCasual},
}

// Apply fills topic, audience and voice from the template, keeping the
// request's content types.
func (t Template) Apply(r Request) Request {
	r.Topic = t.Title
	r.Audience = t.Audience
	r.BrandVoice = t.Voice
	return r
}
