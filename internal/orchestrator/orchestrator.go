// Package orchestrator owns the session state and drives campaign
// generation: Idle -> Submitting -> Idle, one cycle at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/CampaignCenter/internal/agent"
	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
	"github.com/TobiSchelling/CampaignCenter/internal/database"
	"github.com/TobiSchelling/CampaignCenter/internal/logger"
)

var (
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("a campaign is already being generated")
	// ErrUnknownCampaign is returned for history ids with no archived result.
	ErrUnknownCampaign = errors.New("unknown campaign")

	errNoResponse = errors.New("agent returned no response")
)

// Orchestrator is the single owner of the session state.
type Orchestrator struct {
	invoker agent.Invoker
	ids     agent.IDs
	archive Archive
	now     func() time.Time

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArchive stores results and agent calls in a.
func WithArchive(a Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithAgentIDs overrides the agent identifiers.
func WithAgentIDs(ids agent.IDs) Option {
	return func(o *Orchestrator) { o.ids = ids }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an idle orchestrator showing the blank dashboard.
func New(invoker agent.Invoker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		invoker: invoker,
		ids:     agent.DefaultIDs(),
		now:     time.Now,
		subs:    make(map[int]chan State),
		state: State{
			View:  ViewDashboard,
			Draft: campaign.DefaultRequest(),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.archive == nil {
		o.archive = newMemoryArchive()
	}
	return o
}

// State returns a snapshot of the session.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.snapshot()
}

// Subscribe returns a channel that receives a snapshot after every change.
// Slow readers only see the latest snapshot. Call the returned func to stop.
func (o *Orchestrator) Subscribe() (<-chan State, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan State, 1)
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
}

// notifyLocked publishes the current state. Caller holds o.mu.
func (o *Orchestrator) notifyLocked() {
	s := o.state.snapshot()
	for _, ch := range o.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Generate runs one complete cycle and blocks until the agent has answered.
func (o *Orchestrator) Generate(ctx context.Context, req campaign.Request) Outcome {
	if err := o.begin(req); err != nil {
		return Outcome{Status: Rejected, Err: err}
	}
	return o.run(ctx, req)
}

// Start claims the cycle synchronously and finishes it in the background.
// It rejects with the same errors as Generate.
func (o *Orchestrator) Start(ctx context.Context, req campaign.Request) error {
	if err := o.begin(req); err != nil {
		return err
	}
	go o.run(ctx, req)
	return nil
}

func (o *Orchestrator) begin(req campaign.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Submitting {
		return ErrBusy
	}
	o.state.Submitting = true
	o.state.ActiveAgent = o.ids.Manager
	o.state.Draft = req
	o.notifyLocked()
	return nil
}

func (o *Orchestrator) run(ctx context.Context, req campaign.Request) Outcome {
	brief := campaign.BuildBrief(req)
	started := o.now()

	resp, err := o.invoke(ctx, brief)
	elapsed := o.now().Sub(started)

	switch {
	case err != nil:
		return o.fail(req, &Failure{Kind: FailureTransport, Message: err.Error()}, elapsed)
	case !resp.Success:
		return o.fail(req, &Failure{Kind: FailureRemote, Message: resp.Error, Details: resp.Details}, elapsed)
	}
	return o.succeed(req, resp, elapsed)
}

// invoke calls the manager agent. Panics and empty replies from the invoker
// come back as errors so the cycle always returns to Idle.
func (o *Orchestrator) invoke(ctx context.Context, brief string) (resp *agent.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("agent call panicked: %v", r)
		}
	}()

	resp, err = o.invoker.Invoke(ctx, brief, o.ids.Manager)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	return resp, err
}

func (o *Orchestrator) succeed(req campaign.Request, resp *agent.Response, elapsed time.Duration) Outcome {
	result := campaign.Normalize(resp.Raw, req.Topic, o.now())
	entry := campaign.HistoryEntry{
		ID:           newID(),
		Topic:        req.Topic,
		Timestamp:    result.Timestamp,
		QualityScore: result.QualityScore(),
	}

	if err := o.archive.SaveCampaign(entry, &result); err != nil {
		logger.Log.WithError(err).Warn("Failed to archive campaign")
	}
	o.recordCall(req, "success", nil, elapsed)

	logger.Log.WithFields(logrus.Fields{
		"id":    entry.ID,
		"score": entry.QualityScore,
	}).Infof("Campaign generated for %q", req.Topic)

	o.mu.Lock()
	o.state.Current = &result
	o.state.History = append([]campaign.HistoryEntry{entry}, o.state.History...)
	o.state.View = ViewResults
	o.state.LastFailure = nil
	o.finishLocked()
	o.mu.Unlock()

	return Outcome{Status: Succeeded, Entry: &entry}
}

func (o *Orchestrator) fail(req campaign.Request, f *Failure, elapsed time.Duration) Outcome {
	fields := logrus.Fields{
		"agent": o.ids.Name(o.ids.Manager),
		"kind":  f.Kind,
		"error": f.Message,
	}
	if f.Details != "" {
		fields["details"] = f.Details
	}
	logger.Log.WithFields(fields).Error("Campaign generation failed")

	msg := f.Message
	o.recordCall(req, string(f.Kind), &msg, elapsed)

	o.mu.Lock()
	o.state.LastFailure = f
	o.finishLocked()
	o.mu.Unlock()

	failure := *f
	return Outcome{Status: Failed, Failure: &failure}
}

// finishLocked returns to Idle. Caller holds o.mu.
func (o *Orchestrator) finishLocked() {
	o.state.Submitting = false
	o.state.ActiveAgent = ""
	o.notifyLocked()
}

func (o *Orchestrator) recordCall(req campaign.Request, outcome string, errText *string, elapsed time.Duration) {
	_, err := o.archive.RecordAgentCall(database.AgentCall{
		AgentID:  o.ids.Manager,
		Topic:    req.Topic,
		Outcome:  outcome,
		Error:    errText,
		Duration: elapsed,
		CalledAt: o.now(),
	})
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to record agent call")
	}
}

// ShowDashboard switches to the input form.
func (o *Orchestrator) ShowDashboard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.View = ViewDashboard
	o.notifyLocked()
}

// ShowCampaign displays the archived result of history entry id.
func (o *Orchestrator) ShowCampaign(id string) error {
	result, err := o.archive.GetCampaign(id)
	if err != nil {
		return err
	}
	if result == nil {
		return ErrUnknownCampaign
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Current = result
	o.state.View = ViewResults
	o.notifyLocked()
	return nil
}

// SetDraft replaces the form contents.
func (o *Orchestrator) SetDraft(req campaign.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Draft = req
	o.notifyLocked()
}

// ApplyTemplate fills the form from a quick-start template.
func (o *Orchestrator) ApplyTemplate(t campaign.Template) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Draft = t.Apply(o.state.Draft)
	o.notifyLocked()
}

// SetSampleMode swaps the session for the demo fixture, or back to a blank
// session. It returns ErrBusy while a generation is in flight.
func (o *Orchestrator) SetSampleMode(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Submitting {
		return ErrBusy
	}
	if err := o.archive.ClearCampaigns(); err != nil {
		logger.Log.WithError(err).Warn("Failed to clear campaign archive")
	}

	o.state.SampleMode = on
	o.state.LastFailure = nil
	if !on {
		o.state.Current = nil
		o.state.History = nil
		o.state.Draft = campaign.DefaultRequest()
		o.state.View = ViewDashboard
		o.notifyLocked()
		return nil
	}

	fixture := campaign.Sample(o.now())
	o.state.Current = &fixture.Result
	o.state.History = fixture.History
	o.state.Draft = fixture.Draft
	o.state.View = ViewResults
	if err := o.archive.SaveCampaign(fixture.History[0], &fixture.Result); err != nil {
		logger.Log.WithError(err).Warn("Failed to archive sample campaign")
	}
	o.notifyLocked()
	return nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
