package orchestrator

import (
	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
)

// View is the page the dashboard shows.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewResults   View = "results"
)

// FailureKind distinguishes a failure the agent reported from a call that
// never produced a reply.
type FailureKind string

const (
	FailureRemote    FailureKind = "remote"
	FailureTransport FailureKind = "transport"
)

// Failure describes the last unsuccessful generation.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Details string      `json:"details,omitempty"`
}

// State is a read-only snapshot of the session.
type State struct {
	Submitting  bool                    `json:"submitting"`
	ActiveAgent string                  `json:"active_agent,omitempty"`
	View        View                    `json:"view"`
	Current     *campaign.Result        `json:"current,omitempty"`
	History     []campaign.HistoryEntry `json:"history"`
	LastFailure *Failure                `json:"last_failure,omitempty"`
	Draft       campaign.Request        `json:"draft"`
	SampleMode  bool                    `json:"sample_mode"`
}

// snapshot copies s so that callers cannot reach the live state.
func (s State) snapshot() State {
	out := s
	out.History = append([]campaign.HistoryEntry(nil), s.History...)
	out.Draft.ContentTypes = append([]campaign.ContentType(nil), s.Draft.ContentTypes...)
	if s.Current != nil {
		c := *s.Current
		out.Current = &c
	}
	if s.LastFailure != nil {
		f := *s.LastFailure
		out.LastFailure = &f
	}
	return out
}

// Status is the result category of a Generate call.
type Status int

const (
	Rejected Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Rejected:
		return "rejected"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome reports how one generation cycle ended. Err is set for rejections,
// Entry for successes and Failure for failures.
type Outcome struct {
	Status  Status
	Err     error
	Entry   *campaign.HistoryEntry
	Failure *Failure
}
