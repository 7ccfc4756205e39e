package agent

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/TobiSchelling/CampaignCenter/internal/logger"
)

// parseSpecialistReply extracts the JSON object a specialist was asked to
// return. Models often wrap it in a code fence or a sentence of prose; both
// are tolerated. Anything that is not a complete object yields nil.
func parseSpecialistReply(text string) map[string]any {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = stripFence(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil
	}
	text = text[start : end+1]

	if !gjson.Valid(text) {
		logger.Log.Debugf("Specialist reply is not valid JSON (%d bytes)", len(text))
		return nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		logger.Log.Debugf("Failed to decode specialist reply: %v", err)
		return nil
	}
	return out
}

// stripFence drops the opening fence line and everything from the closing
// fence on.
func stripFence(text string) string {
	lines := strings.Split(text, "\n")
	body := lines[1:]
	for i, line := range body {
		if strings.TrimSpace(line) == "```" {
			body = body[:i]
			break
		}
	}
	return strings.Join(body, "\n")
}
