// Package agent invokes the remote multi-agent generation service.
//
// Only the coordinating (manager) agent is ever addressed; it fans out to the
// content writer, SEO analyst and graphics designer on its own.
package agent

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
)

// Default agent identifiers of the hosted service.
const (
	DefaultManagerID          = "698e0b61a7eb0a142757a2e8"
	DefaultContentWriterID    = "698e0b170f1d9d4090b519bc"
	DefaultSEOAnalystID       = "698e0b2d76b1a8ab8e635751"
	DefaultGraphicsDesignerID = "698e0b44ad038861b82558cd"
)

// IDs holds the four agent identifiers.
type IDs struct {
	Manager          string
	ContentWriter    string
	SEOAnalyst       string
	GraphicsDesigner string
}

// DefaultIDs returns the identifiers of the hosted service.
func DefaultIDs() IDs {
	return IDs{
		Manager:          DefaultManagerID,
		ContentWriter:    DefaultContentWriterID,
		SEOAnalyst:       DefaultSEOAnalystID,
		GraphicsDesigner: DefaultGraphicsDesignerID,
	}
}

// Name maps an identifier to a display name.
func (ids IDs) Name(id string) string {
	switch id {
	case ids.Manager:
		return "Campaign Manager"
	case ids.ContentWriter:
		return "Content Writer"
	case ids.SEOAnalyst:
		return "SEO Analyst"
	case ids.GraphicsDesigner:
		return "Graphics Designer"
	}
	return id
}

// Response is the reply envelope of one agent call. Raw holds the complete
// JSON document, which is what the normalizer reads.
type Response struct {
	Success bool
	Error   string
	Details string
	Raw     []byte
}

// ParseResponse reads the envelope fields from a raw reply. Only a literal
// JSON true counts as success.
func ParseResponse(raw []byte) *Response {
	r := &Response{Raw: raw}
	if !gjson.ValidBytes(raw) {
		r.Error = "agent reply is not valid JSON"
		return r
	}
	doc := gjson.ParseBytes(campaign.LastKeyWins(raw))
	r.Success = doc.Get("success").Type == gjson.True
	r.Error = doc.Get("error").String()
	r.Details = doc.Get("details").String()
	if !r.Success && r.Error == "" {
		r.Error = "agent reported failure"
	}
	return r
}

// Invoker performs a single request/response call to an agent.
// A returned error means the call itself broke; a reply with Success false
// means the agent ran and reported a failure.
type Invoker interface {
	Invoke(ctx context.Context, brief, agentID string) (*Response, error)
}

// TransportError wraps failures to reach or read from the agent service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
