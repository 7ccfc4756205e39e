package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/CampaignCenter/internal/llm"
	"github.com/TobiSchelling/CampaignCenter/internal/logger"
)

const contentWriterPrompt = `You are the content writer of a marketing team.

%s

Write the campaign content. Use markdown (#, ##, ###, - lists, **bold**) in the blog post and email body.

Respond with ONLY this JSON:
{
    "blog_post": "markdown blog post",
    "social_media_posts": {"linkedin": "...", "twitter": "...", "facebook": "...", "instagram": "..."},
    "email_content": {"subject_line": "...", "preview_text": "...", "body": "markdown email body"},
    "key_messages": ["message 1", "message 2", "message 3"],
    "cta_recommendations": ["CTA 1", "CTA 2", "CTA 3"]
}`

const seoAnalystPrompt = `You are the SEO analyst of a marketing team.

%s

Analyse how the campaign content should be optimized for search.

Respond with ONLY this JSON:
{
    "primary_keywords": ["..."],
    "secondary_keywords": ["..."],
    "meta_title": "...",
    "meta_description": "...",
    "heading_structure": {"h1": "...", "h2_suggestions": ["..."], "h3_suggestions": ["..."]},
    "readability_score": "short readability assessment",
    "seo_score": 0-100,
    "optimization_recommendations": ["..."],
    "internal_link_suggestions": ["..."],
    "content_improvements": ["..."]
}`

const graphicsDesignerPrompt = `You are the graphics designer of a marketing team.

%s

Describe the visuals for the campaign.

Respond with ONLY this JSON:
{
    "blog_header": "design description",
    "social_graphics": {"linkedin_graphic": "...", "twitter_graphic": "...", "facebook_graphic": "...", "instagram_graphic": "..."},
    "promotional_banner": "design description",
    "design_rationale": "why these choices fit the brand",
    "color_palette": ["#RRGGBB", "#RRGGBB", "#RRGGBB"]
}`

// LLMInvoker stands in for the hosted service by running the three
// specialist roles against a local or OpenAI model and assembling the same
// reply envelope the coordinating agent would return.
type LLMInvoker struct {
	provider  llm.Provider
	maxTokens int
}

// NewLLMInvoker creates an invoker backed by provider.
func NewLLMInvoker(provider llm.Provider, maxTokens int) *LLMInvoker {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &LLMInvoker{provider: provider, maxTokens: maxTokens}
}

type specialist struct {
	key    string
	prompt string
}

var specialists = []specialist{
	{key: "content_writer", prompt: contentWriterPrompt},
	{key: "seo_analyst", prompt: seoAnalystPrompt},
	{key: "graphics_designer", prompt: graphicsDesignerPrompt},
}

// Invoke runs the specialists concurrently. Specialists that fail or return
// unparseable output are left out of the result; the call only fails when
// none of them produced anything.
func (l *LLMInvoker) Invoke(ctx context.Context, brief, agentID string) (*Response, error) {
	if l.provider == nil {
		return nil, &TransportError{Op: "configure", Err: fmt.Errorf("no LLM provider available")}
	}

	outputs := make([]map[string]any, len(specialists))
	errs := make([]string, len(specialists))

	var g errgroup.Group
	for i, s := range specialists {
		g.Go(func() error {
			text, err := l.provider.Generate(ctx, fmt.Sprintf(s.prompt, brief), l.maxTokens)
			switch parsed := parseSpecialistReply(text); {
			case err != nil:
				errs[i] = fmt.Sprintf("%s: %v", s.key, err)
			case parsed == nil:
				errs[i] = fmt.Sprintf("%s: unparseable output", s.key)
			default:
				outputs[i] = parsed
			}
			// A failed specialist only drops its part of the result.
			return nil
		})
	}
	g.Wait()

	result := make(map[string]any, len(specialists))
	var failures []string
	for i, s := range specialists {
		if outputs[i] != nil {
			result[s.key] = outputs[i]
		}
		if errs[i] != "" {
			failures = append(failures, errs[i])
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "call", Err: err}
	}

	for _, f := range failures {
		logger.Log.WithField("agent", agentID).Warnf("Specialist failed: %s", f)
	}

	var envelope map[string]any
	if len(result) == 0 {
		envelope = map[string]any{
			"success": false,
			"error":   "no specialist produced a result",
			"details": strings.Join(failures, "; "),
		}
	} else {
		envelope = map[string]any{
			"success":  true,
			"response": map[string]any{"result": result},
		}
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: err}
	}
	return ParseResponse(raw), nil
}
