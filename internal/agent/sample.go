package agent

import (
	"context"

	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
)

// SampleInvoker answers every call with the embedded sample reply.
type SampleInvoker struct{}

// Invoke returns the sample envelope.
func (SampleInvoker) Invoke(ctx context.Context, _ string, _ string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: "call", Err: err}
	}
	return ParseResponse(campaign.SampleEnvelope), nil
}
