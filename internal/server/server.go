package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/CampaignCenter/internal/agent"
	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
	"github.com/TobiSchelling/CampaignCenter/internal/database"
	"github.com/TobiSchelling/CampaignCenter/internal/export"
	"github.com/TobiSchelling/CampaignCenter/internal/inspire"
	"github.com/TobiSchelling/CampaignCenter/internal/logger"
	"github.com/TobiSchelling/CampaignCenter/internal/markdown"
	"github.com/TobiSchelling/CampaignCenter/internal/orchestrator"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Records reads the session archive. *database.DB satisfies it.
type Records interface {
	ListCampaigns() ([]campaign.HistoryEntry, error)
	RecentAgentCalls(limit int) ([]database.AgentCall, error)
}

// Options configures the dashboard.
type Options struct {
	Templates         []campaign.Template
	AgentIDs          agent.IDs
	Inspirer          *inspire.Inspirer
	Records           Records
	GeneratePerMinute int
	GenerateBurst     int
	// BaseContext is used for generation cycles, which outlive the request
	// that started them.
	BaseContext context.Context
}

// Server is the HTTP server for the campaign dashboard.
type Server struct {
	orch    *orchestrator.Orchestrator
	opts    Options
	limiter *rate.Limiter
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server.
func New(orch *orchestrator.Orchestrator, opts Options) (*Server, error) {
	if opts.AgentIDs == (agent.IDs{}) {
		opts.AgentIDs = agent.DefaultIDs()
	}
	if len(opts.Templates) == 0 {
		opts.Templates = campaign.DefaultTemplates
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}

	funcMap := template.FuncMap{
		"markdown":   markdown.RenderHTML,
		"scoreClass": campaign.ScoreClass,
		"agentName":  opts.AgentIDs.Name,
		"formatTime": func(t time.Time) string {
			return t.Local().Format("Jan 2, 2006 15:04")
		},
		"hasType": func(r campaign.Request, c campaign.ContentType) bool {
			return r.Has(c)
		},
		"inc": func(i int) int { return i + 1 },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"dashboard.html", "results.html", "inspiration.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		orch:    orch,
		opts:    opts,
		limiter: newLimiter(opts.GeneratePerMinute, opts.GenerateBurst),
		pages:   pages,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func newLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /generate", s.handleGenerate)
	s.mux.HandleFunc("POST /dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /campaigns/{id}", s.handleCampaign)
	s.mux.HandleFunc("POST /sample", s.handleSample)
	s.mux.HandleFunc("POST /templates/{n}", s.handleTemplate)
	s.mux.HandleFunc("POST /topic/import", s.handleImport)
	s.mux.HandleFunc("GET /inspiration", s.handleInspiration)
	s.mux.HandleFunc("GET /export.md", s.handleExportMarkdown)
	s.mux.HandleFunc("GET /export.html", s.handleExportHTML)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/campaigns", s.handleCampaigns)
	s.mux.HandleFunc("GET /api/calls", s.handleCalls)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.orch.State()
	data := s.pageData(st, st.Draft, r.URL.Query().Get("notice"))

	if st.View == orchestrator.ViewResults && st.Current != nil {
		s.render(w, "results.html", data)
		return
	}
	s.render(w, "dashboard.html", data)
}

func (s *Server) pageData(st orchestrator.State, draft campaign.Request, notice string) map[string]any {
	return map[string]any{
		"State":        st,
		"Draft":        draft,
		"Templates":    s.opts.Templates,
		"Audiences":    campaign.Audiences,
		"Voices":       campaign.BrandVoices,
		"ContentTypes": campaign.ContentTypes,
		"Notice":       notice,
		"Inspiration":  s.opts.Inspirer != nil,
		"Refresh":      st.Submitting,
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		http.Error(w, "Too many campaigns requested; try again in a minute", http.StatusTooManyRequests)
		return
	}

	req, err := requestFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch err := s.orch.Start(s.opts.BaseContext, req); {
	case errors.Is(err, campaign.ErrEmptyTopic):
		// Re-show what was typed without touching the session.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, "dashboard.html", s.pageData(s.orch.State(), req, "Enter a campaign topic first"))
		return
	case errors.Is(err, orchestrator.ErrBusy):
		redirect(w, r, "A campaign is already being generated")
		return
	case err != nil:
		logger.Log.WithError(err).Error("Starting generation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func requestFromForm(r *http.Request) (campaign.Request, error) {
	if err := r.ParseForm(); err != nil {
		return campaign.Request{}, fmt.Errorf("parsing form: %w", err)
	}
	req := campaign.DefaultRequest()
	req.Topic = strings.TrimSpace(r.PostFormValue("topic"))

	if v := r.PostFormValue("audience"); v != "" {
		a, err := campaign.ParseAudience(v)
		if err != nil {
			return req, err
		}
		req.Audience = a
	}
	if v := r.PostFormValue("voice"); v != "" {
		bv, err := campaign.ParseBrandVoice(v)
		if err != nil {
			return req, err
		}
		req.BrandVoice = bv
	}

	req.ContentTypes = nil
	for _, v := range r.PostForm["types"] {
		c, err := campaign.ParseContentType(v)
		if err != nil {
			return req, err
		}
		if !req.Has(c) {
			req.ContentTypes = append(req.ContentTypes, c)
		}
	}
	return req, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.orch.ShowDashboard()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	err := s.orch.ShowCampaign(r.PathValue("id"))
	if errors.Is(err, orchestrator.ErrUnknownCampaign) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("Loading campaign failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.SetSampleMode(!s.orch.State().SampleMode); errors.Is(err, orchestrator.ErrBusy) {
		redirect(w, r, "Wait for the current campaign to finish")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 || n >= len(s.opts.Templates) {
		http.NotFound(w, r)
		return
	}
	s.orch.ApplyTemplate(s.opts.Templates[n])
	s.orch.ShowDashboard()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Inspirer == nil {
		http.NotFound(w, r)
		return
	}

	suggestion, err := s.opts.Inspirer.TopicFromURL(r.Context(), r.FormValue("url"))
	if err != nil {
		logger.Log.WithError(err).Warn("Topic import failed")
		redirect(w, r, "Could not import a topic: "+err.Error())
		return
	}

	draft := s.orch.State().Draft
	draft.Topic = suggestion.Topic
	s.orch.SetDraft(draft)
	s.orch.ShowDashboard()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleInspiration(w http.ResponseWriter, r *http.Request) {
	if s.opts.Inspirer == nil {
		http.NotFound(w, r)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	s.render(w, "inspiration.html", map[string]any{
		"State":         s.orch.State(),
		"Query":         query,
		"SearchEnabled": s.opts.Inspirer.SearchEnabled(),
		"Headlines":     s.opts.Inspirer.Headlines(r.Context(), query),
	})
}

func (s *Server) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	st := s.orch.State()
	if st.Current == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="campaign.md"`)
	w.Write([]byte(export.Markdown(st.Current)))
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	st := s.orch.State()
	if st.Current == nil {
		http.NotFound(w, r)
		return
	}
	page, err := export.HTML(st.Current)
	if err != nil {
		logger.Log.WithError(err).Error("Exporting campaign failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.orch.State())
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Records == nil {
		writeJSON(w, []campaign.HistoryEntry{})
		return
	}
	entries, err := s.opts.Records.ListCampaigns()
	if err != nil {
		logger.Log.WithError(err).Error("Listing campaigns failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []campaign.HistoryEntry{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	if s.opts.Records == nil {
		writeJSON(w, []database.AgentCall{})
		return
	}
	calls, err := s.opts.Records.RecentAgentCalls(50)
	if err != nil {
		logger.Log.WithError(err).Error("Listing agent calls failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if calls == nil {
		calls = []database.AgentCall{}
	}
	writeJSON(w, calls)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("Writing JSON response failed")
	}
}

// redirect returns to the dashboard with a one-off notice.
func redirect(w http.ResponseWriter, r *http.Request, notice string) {
	http.Redirect(w, r, "/?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		logger.Log.Errorf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		logger.Log.Errorf("Error rendering template %s: %v", name, err)
	}
}

// Serve starts the HTTP server on the given port and stops when ctx ends.
func Serve(ctx context.Context, orch *orchestrator.Orchestrator, opts Options, port int) error {
	opts.BaseContext = ctx
	srv, err := New(orch, opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Log.Infof("Server listening on http://%s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
