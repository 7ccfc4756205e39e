package campaign

import (
	"fmt"
	"strings"
)

const briefTemplate = `Create a comprehensive marketing campaign for: %s

Target Audience: %s
Content Types: %s
Brand Voice: %s

Please create:
1. Blog post and social media content
2. SEO optimization analysis
3. Marketing graphics and visuals`

// BuildBrief composes the instruction sent to the coordinating agent.
// Content types appear in the order the user selected them.
func BuildBrief(r Request) string {
	types := make([]string, len(r.ContentTypes))
	for i, t := range r.ContentTypes {
		types[i] = string(t)
	}
	return fmt.Sprintf(briefTemplate, r.Topic, r.Audience, strings.Join(types, ", "), r.BrandVoice)
}
