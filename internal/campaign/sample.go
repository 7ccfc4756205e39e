package campaign

import (
	_ "embed"
	"time"
)

// SampleEnvelope is a complete, successful coordinating-agent reply used for
// demos and offline runs.
//
//go:embed sample.json
var SampleEnvelope []byte

// SampleTopic is the topic the sample envelope was generated for.
const SampleTopic = "AI-Powered Marketing Automation Platform Launch"

// Fixture is a static dashboard state: a filled form, a displayed result
// and a short history.
type Fixture struct {
	Draft   Request
	Result  Result
	History []HistoryEntry
}

// Sample builds the demo fixture relative to now.
func Sample(now time.Time) Fixture {
	day := 24 * time.Hour
	return Fixture{
		Draft: Request{
			Topic:        SampleTopic,
			Audience:     AudienceB2B,
			ContentTypes: []ContentType{ContentBlog, ContentSocial, ContentEmail},
			BrandVoice:   VoiceProfessional,
		},
		Result: Normalize(SampleEnvelope, SampleTopic, now),
		History: []HistoryEntry{
			{ID: "1", Topic: SampleTopic, Timestamp: now, QualityScore: 87},
			{ID: "2", Topic: "Summer Product Launch Campaign", Timestamp: now.Add(-day), QualityScore: 82},
			{ID: "3", Topic: "Customer Success Stories Series", Timestamp: now.Add(-2 * day), QualityScore: 91},
		},
	}
}
