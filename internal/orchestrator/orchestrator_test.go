package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/TobiSchelling/CampaignCenter/internal/agent"
	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
	"github.com/TobiSchelling/CampaignCenter/internal/database"
	"github.com/TobiSchelling/CampaignCenter/internal/markdown"
)

var testNow = time.Date(2026, 2, 6, 9, 30, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockInvoker struct {
	mu      sync.Mutex
	raw     string
	err     error
	calls   []string
	agents  []string
	release chan struct{}
	entered chan struct{}
}

func (m *mockInvoker) Invoke(ctx context.Context, brief, agentID string) (*agent.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, brief)
	m.agents = append(m.agents, agentID)
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return nil, m.err
	}
	return agent.ParseResponse([]byte(m.raw)), nil
}

func (m *mockInvoker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func successPayload(blog string, score string) string {
	return fmt.Sprintf(`{"success":true,"response":{"result":{
		"content_writer":{"blog_post":%q},
		"seo_analyst":{"seo_score":%s}
	}}}`, blog, score)
}

func newTestOrchestrator(inv agent.Invoker, opts ...Option) *Orchestrator {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(inv, opts...)
}

func testRequest(topic string) campaign.Request {
	r := campaign.DefaultRequest()
	r.Topic = topic
	return r
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	for _, topic := range []string{"", "   ", "\t\n"} {
		inv := &mockInvoker{raw: successPayload("x", "90")}
		o := newTestOrchestrator(inv)
		before := o.State()

		out := o.Generate(context.Background(), testRequest(topic))
		if out.Status != Rejected {
			t.Errorf("topic %q: expected rejection, got %v", topic, out.Status)
		}
		if !errors.Is(out.Err, campaign.ErrEmptyTopic) {
			t.Errorf("topic %q: expected ErrEmptyTopic, got %v", topic, out.Err)
		}
		if inv.callCount() != 0 {
			t.Errorf("topic %q: expected no remote call", topic)
		}
		if diff := cmp.Diff(before, o.State()); diff != "" {
			t.Errorf("topic %q: state changed (-before +after):\n%s", topic, diff)
		}
	}
}

func TestGenerateSuccess(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("# Hi", "91")}
	o := newTestOrchestrator(inv)

	req := testRequest("Spring Launch")
	req.ContentTypes = []campaign.ContentType{campaign.ContentEmail, campaign.ContentBlog}
	out := o.Generate(context.Background(), req)
	if out.Status != Succeeded {
		t.Fatalf("expected success, got %v (%v)", out.Status, out.Failure)
	}

	if len(inv.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(inv.calls))
	}
	if inv.agents[0] != agent.DefaultManagerID {
		t.Errorf("expected manager agent, got %q", inv.agents[0])
	}
	if inv.calls[0] != campaign.BuildBrief(req) {
		t.Errorf("unexpected brief:\n%s", inv.calls[0])
	}
	if !strings.Contains(inv.calls[0], "Content Types: Email, Blog") {
		t.Error("expected content types in insertion order")
	}

	s := o.State()
	if s.Submitting || s.ActiveAgent != "" {
		t.Error("expected idle state after completion")
	}
	if s.View != ViewResults {
		t.Errorf("expected results view, got %q", s.View)
	}
	if s.Current == nil || s.Current.Topic != "Spring Launch" {
		t.Fatalf("expected current result for topic, got %+v", s.Current)
	}
	if !s.Current.Timestamp.Equal(testNow) {
		t.Errorf("expected timestamp %v, got %v", testNow, s.Current.Timestamp)
	}
	if len(s.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(s.History))
	}
	if s.History[0].QualityScore != 91 {
		t.Errorf("expected score 91, got %d", s.History[0].QualityScore)
	}
	if s.History[0].ID != out.Entry.ID {
		t.Error("expected outcome entry to match history")
	}
}

func TestGenerateDefaultScore(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("x", `"high"`)}
	o := newTestOrchestrator(inv)
	o.Generate(context.Background(), testRequest("T"))
	if got := o.State().History[0].QualityScore; got != campaign.DefaultQualityScore {
		t.Errorf("expected default score, got %d", got)
	}
}

func TestHistoryNewestFirstWithUniqueIDs(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("x", "80")}
	o := newTestOrchestrator(inv)
	for _, topic := range []string{"one", "two", "three"} {
		if out := o.Generate(context.Background(), testRequest(topic)); out.Status != Succeeded {
			t.Fatalf("%s: expected success", topic)
		}
	}

	h := o.State().History
	got := []string{h[0].Topic, h[1].Topic, h[2].Topic}
	if diff := cmp.Diff([]string{"three", "two", "one"}, got); diff != "" {
		t.Errorf("history order mismatch (-want +got):\n%s", diff)
	}
	seen := map[string]bool{}
	for _, e := range h {
		if seen[e.ID] {
			t.Errorf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestRemoteFailureLeavesStateUntouched(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("first", "85")}
	o := newTestOrchestrator(inv)
	o.Generate(context.Background(), testRequest("first"))
	before := o.State()

	inv.raw = `{"success":false,"error":"content writer unavailable","details":"quota"}`
	out := o.Generate(context.Background(), testRequest("second"))
	if out.Status != Failed {
		t.Fatalf("expected failure, got %v", out.Status)
	}
	if out.Failure.Kind != FailureRemote || out.Failure.Message != "content writer unavailable" || out.Failure.Details != "quota" {
		t.Errorf("unexpected failure %+v", out.Failure)
	}

	after := o.State()
	if diff := cmp.Diff(before.Current, after.Current); diff != "" {
		t.Errorf("current result changed:\n%s", diff)
	}
	if diff := cmp.Diff(before.History, after.History); diff != "" {
		t.Errorf("history changed:\n%s", diff)
	}
	if after.Submitting || after.ActiveAgent != "" {
		t.Error("expected idle state after failure")
	}
	if after.LastFailure == nil || after.LastFailure.Message != "content writer unavailable" {
		t.Errorf("expected last failure to be reported, got %+v", after.LastFailure)
	}

	inv.raw = successPayload("third", "70")
	o.Generate(context.Background(), testRequest("third"))
	if o.State().LastFailure != nil {
		t.Error("expected success to clear the last failure")
	}
}

func TestTransportFailure(t *testing.T) {
	inv := &mockInvoker{err: &agent.TransportError{Op: "call", Err: errors.New("connection refused")}}
	o := newTestOrchestrator(inv)

	out := o.Generate(context.Background(), testRequest("T"))
	if out.Status != Failed {
		t.Fatalf("expected failure, got %v", out.Status)
	}
	if out.Failure.Kind != FailureTransport {
		t.Errorf("expected transport failure, got %q", out.Failure.Kind)
	}
	if !strings.Contains(out.Failure.Message, "connection refused") {
		t.Errorf("unexpected message %q", out.Failure.Message)
	}
	s := o.State()
	if s.Current != nil || len(s.History) != 0 || s.View != ViewDashboard {
		t.Errorf("expected untouched state, got %+v", s)
	}
}

func TestSecondGenerateWhileBusy(t *testing.T) {
	inv := &mockInvoker{
		raw:     successPayload("x", "90"),
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	o := newTestOrchestrator(inv)

	if err := o.Start(context.Background(), testRequest("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-inv.entered

	s := o.State()
	if !s.Submitting || s.ActiveAgent != agent.DefaultManagerID {
		t.Errorf("expected submitting with manager active, got %+v", s)
	}

	out := o.Generate(context.Background(), testRequest("second"))
	if out.Status != Rejected || !errors.Is(out.Err, ErrBusy) {
		t.Errorf("expected ErrBusy rejection, got %v %v", out.Status, out.Err)
	}
	if err := o.Start(context.Background(), testRequest("third")); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy from Start, got %v", err)
	}
	if inv.callCount() != 1 {
		t.Errorf("expected a single remote call, got %d", inv.callCount())
	}

	updates, stop := o.Subscribe()
	defer stop()
	close(inv.release)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-updates:
			if !st.Submitting {
				if len(st.History) != 1 || st.History[0].Topic != "first" {
					t.Errorf("unexpected history %+v", st.History)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the cycle to finish")
		}
	}
}

func TestEndToEndBlogBlocks(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("# Hi\n\nBody **word**", "88")}
	o := newTestOrchestrator(inv)
	o.Generate(context.Background(), testRequest("T"))

	got := markdown.Render(o.State().Current.Content.BlogPost)
	want := []markdown.Block{
		{Kind: markdown.Heading, Level: 1, Spans: []markdown.Span{markdown.Plain("Hi")}},
		{Kind: markdown.Spacer},
		{Kind: markdown.Paragraph, Spans: []markdown.Span{markdown.Plain("Body "), markdown.Strong("word")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("blog blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("x", "90")}
	o := newTestOrchestrator(inv)
	o.Generate(context.Background(), testRequest("T"))

	s := o.State()
	s.History[0].Topic = "mutated"
	s.Current.Topic = "mutated"
	if o.State().History[0].Topic != "T" || o.State().Current.Topic != "T" {
		t.Error("expected snapshot mutation not to leak into the session")
	}
}

func TestShowCampaign(t *testing.T) {
	inv := &mockInvoker{raw: successPayload("first post", "90")}
	o := newTestOrchestrator(inv)
	first := o.Generate(context.Background(), testRequest("first"))
	inv.raw = successPayload("second post", "90")
	o.Generate(context.Background(), testRequest("second"))

	o.ShowDashboard()
	if o.State().View != ViewDashboard {
		t.Error("expected dashboard view")
	}

	if err := o.ShowCampaign(first.Entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := o.State()
	if s.View != ViewResults || s.Current.Content.BlogPost != "first post" {
		t.Errorf("expected first campaign displayed, got %q", s.Current.Content.BlogPost)
	}
	if len(s.History) != 2 {
		t.Error("expected history to be unchanged")
	}

	if err := o.ShowCampaign("nope"); !errors.Is(err, ErrUnknownCampaign) {
		t.Errorf("expected ErrUnknownCampaign, got %v", err)
	}
}

func TestShowCampaignWithDatabaseArchive(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer db.Close()

	inv := &mockInvoker{raw: successPayload("archived", "77")}
	o := newTestOrchestrator(inv, WithArchive(db))
	out := o.Generate(context.Background(), testRequest("T"))

	o.ShowDashboard()
	if err := o.ShowCampaign(out.Entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State().Current.QualityScore() != 77 {
		t.Error("expected archived score to survive")
	}

	calls, err := db.RecentAgentCalls(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0].Outcome != "success" {
		t.Errorf("expected one successful call logged, got %+v", calls)
	}
}

func TestDraftAndTemplates(t *testing.T) {
	o := newTestOrchestrator(&mockInvoker{})
	if diff := cmp.Diff(campaign.DefaultRequest(), o.State().Draft); diff != "" {
		t.Errorf("unexpected initial draft:\n%s", diff)
	}

	o.SetDraft(testRequest("draft topic"))
	o.ApplyTemplate(campaign.DefaultTemplates[1])
	d := o.State().Draft
	if d.Topic != campaign.DefaultTemplates[1].Title {
		t.Errorf("expected template title, got %q", d.Topic)
	}
	if d.Audience != campaign.AudienceB2C || d.BrandVoice != campaign.VoicePlayful {
		t.Errorf("unexpected audience/voice %s/%s", d.Audience, d.BrandVoice)
	}
}

type panicInvoker struct{}

func (panicInvoker) Invoke(context.Context, string, string) (*agent.Response, error) {
	panic("connection pool exhausted")
}

type nilInvoker struct{}

func (nilInvoker) Invoke(context.Context, string, string) (*agent.Response, error) {
	return nil, nil
}

func TestInvokerPanicBecomesTransportFailure(t *testing.T) {
	o := newTestOrchestrator(panicInvoker{})

	out := o.Generate(context.Background(), testRequest("T"))
	if out.Status != Failed || out.Failure.Kind != FailureTransport {
		t.Fatalf("expected transport failure, got %v %+v", out.Status, out.Failure)
	}
	if !strings.Contains(out.Failure.Message, "connection pool exhausted") {
		t.Errorf("unexpected message %q", out.Failure.Message)
	}

	s := o.State()
	if s.Submitting || s.ActiveAgent != "" {
		t.Errorf("expected idle after panic, got submitting=%v active=%q", s.Submitting, s.ActiveAgent)
	}
	if s.LastFailure == nil {
		t.Error("expected last failure to be recorded")
	}

	out = o.Generate(context.Background(), testRequest("again"))
	if errors.Is(out.Err, ErrBusy) {
		t.Error("expected next generation to be accepted")
	}
}

func TestInvokerPanicInBackground(t *testing.T) {
	o := newTestOrchestrator(panicInvoker{})
	updates, stop := o.Subscribe()
	defer stop()

	if err := o.Start(context.Background(), testRequest("T")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-updates:
			if !st.Submitting {
				if st.LastFailure == nil || st.LastFailure.Kind != FailureTransport {
					t.Errorf("expected transport failure, got %+v", st.LastFailure)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the cycle to finish")
		}
	}
}

func TestNilResponseBecomesTransportFailure(t *testing.T) {
	o := newTestOrchestrator(nilInvoker{})

	out := o.Generate(context.Background(), testRequest("T"))
	if out.Status != Failed || out.Failure.Kind != FailureTransport {
		t.Fatalf("expected transport failure, got %v %+v", out.Status, out.Failure)
	}
	if s := o.State(); s.Submitting || s.Current != nil || len(s.History) != 0 {
		t.Errorf("expected idle untouched session, got %+v", s)
	}
}

func TestSampleModeRejectedWhileBusy(t *testing.T) {
	inv := &mockInvoker{
		raw:     successPayload("x", "90"),
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	o := newTestOrchestrator(inv)
	updates, stop := o.Subscribe()
	defer stop()

	if err := o.Start(context.Background(), testRequest("live")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-inv.entered

	if err := o.SetSampleMode(true); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	close(inv.release)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-updates:
			if st.Submitting {
				continue
			}
			if st.SampleMode || len(st.History) != 1 || st.History[0].Topic != "live" {
				t.Errorf("expected only the live campaign in history, got %+v", st.History)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for the cycle to finish")
		}
	}
}

func TestSampleMode(t *testing.T) {
	o := newTestOrchestrator(&mockInvoker{})

	if err := o.SetSampleMode(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := o.State()
	if !s.SampleMode || s.View != ViewResults {
		t.Errorf("expected sample results view, got %+v", s)
	}
	if len(s.History) != 3 || s.Current == nil || s.Current.Topic != campaign.SampleTopic {
		t.Fatalf("expected sample fixture, got %d history entries", len(s.History))
	}
	if s.Draft.Topic != campaign.SampleTopic {
		t.Errorf("expected sample draft, got %q", s.Draft.Topic)
	}
	if err := o.ShowCampaign(s.History[0].ID); err != nil {
		t.Errorf("expected sample campaign to be viewable: %v", err)
	}

	if err := o.SetSampleMode(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s = o.State()
	if s.SampleMode || s.Current != nil || len(s.History) != 0 || s.View != ViewDashboard {
		t.Errorf("expected blank session, got %+v", s)
	}
	if diff := cmp.Diff(campaign.DefaultRequest(), s.Draft); diff != "" {
		t.Errorf("expected default draft:\n%s", diff)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	o := newTestOrchestrator(&mockInvoker{})
	ch, stop := o.Subscribe()
	o.ShowDashboard()

	select {
	case s := <-ch:
		if s.View != ViewDashboard {
			t.Errorf("unexpected view %q", s.View)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}

	stop()
	stop()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
	o.ShowDashboard()
}
