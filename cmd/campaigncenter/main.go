package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/CampaignCenter/internal/agent"
	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
	"github.com/TobiSchelling/CampaignCenter/internal/config"
	"github.com/TobiSchelling/CampaignCenter/internal/database"
	"github.com/TobiSchelling/CampaignCenter/internal/export"
	"github.com/TobiSchelling/CampaignCenter/internal/inspire"
	"github.com/TobiSchelling/CampaignCenter/internal/llm"
	"github.com/TobiSchelling/CampaignCenter/internal/logger"
	"github.com/TobiSchelling/CampaignCenter/internal/markdown"
	"github.com/TobiSchelling/CampaignCenter/internal/orchestrator"
	"github.com/TobiSchelling/CampaignCenter/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "campaigncenter",
	Short:   "Marketing campaigns from a multi-agent service",
	Long:    "Campaign Center sends a campaign brief to a coordinating agent and renders the content, SEO analysis and graphics it returns.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		if err := logger.InitLogger(level, ""); err != nil {
			return err
		}

		// Skip config loading for commands that do not need it
		switch cmd.Name() {
		case "init", "version", "render":
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err != nil && configPath != "":
			return err
		case err != nil:
			logger.Log.Debugf("No config file found, using built-in defaults")
			cfg = config.Default()
		default:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		}

		if !verbose {
			level = cfg.Logging.Level
		}
		return logger.InitLogger(level, cfg.Logging.File)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(renderCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("campaigncenter", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/campaigncenter/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the agent endpoint, API key variable, and inspiration feeds.")
		return nil
	},
}

// --- serve command ---

var (
	servePort   int
	serveSample bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the campaign dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		invoker, err := newInvoker(serveSample)
		if err != nil {
			return err
		}

		db, err := database.OpenMemory()
		if err != nil {
			return err
		}
		defer db.Close()

		orch := orchestrator.New(invoker,
			orchestrator.WithArchive(db),
			orchestrator.WithAgentIDs(cfg.Agent.IDs()),
		)

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, orch, server.Options{
			Templates:         cfg.Templates,
			AgentIDs:          cfg.Agent.IDs(),
			Inspirer:          newInspirer(),
			Records:           db,
			GeneratePerMinute: cfg.Server.GeneratePerMinute,
			GenerateBurst:     cfg.Server.GenerateBurst,
		}, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
	serveCmd.Flags().BoolVar(&serveSample, "sample", false, "Answer every request with the built-in sample campaign")
}

// --- generate command ---

var (
	genTopic    string
	genAudience string
	genTypes    []string
	genVoice    string
	genSample   bool
	genExport   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one campaign and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := requestFromFlags()
		if err != nil {
			return err
		}

		invoker, err := newInvoker(genSample)
		if err != nil {
			return err
		}
		orch := orchestrator.New(invoker, orchestrator.WithAgentIDs(cfg.Agent.IDs()))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Asking the %s for a campaign on %q...\n", cfg.Agent.IDs().Name(cfg.Agent.Manager), req.Topic)
		out := orch.Generate(ctx, req)
		switch out.Status {
		case orchestrator.Rejected:
			return out.Err
		case orchestrator.Failed:
			if out.Failure.Details != "" {
				return fmt.Errorf("generation failed: %s (%s)", out.Failure.Message, out.Failure.Details)
			}
			return fmt.Errorf("generation failed: %s", out.Failure.Message)
		}

		result := orch.State().Current
		printResult(os.Stdout, result)

		if genExport != "" {
			if err := writeExport(genExport, result); err != nil {
				return err
			}
			fmt.Printf("\nExported to %s\n", genExport)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "Campaign topic")
	generateCmd.Flags().StringVarP(&genAudience, "audience", "a", string(campaign.AudienceB2B), "Target audience (B2B, B2C, Technical, General)")
	generateCmd.Flags().StringSliceVar(&genTypes, "types", []string{string(campaign.ContentBlog), string(campaign.ContentSocial)}, "Content types (Blog, Social, Email, AdCopy)")
	generateCmd.Flags().StringVar(&genVoice, "voice", string(campaign.VoiceProfessional), "Brand voice (Professional, Casual, Playful, Authoritative)")
	generateCmd.Flags().BoolVar(&genSample, "sample", false, "Use the built-in sample reply instead of calling the agent")
	generateCmd.Flags().StringVarP(&genExport, "export", "o", "", "Also write the campaign to a .md or .html file")
}

func requestFromFlags() (campaign.Request, error) {
	req := campaign.Request{Topic: strings.TrimSpace(genTopic)}

	a, err := campaign.ParseAudience(genAudience)
	if err != nil {
		return req, err
	}
	req.Audience = a

	v, err := campaign.ParseBrandVoice(genVoice)
	if err != nil {
		return req, err
	}
	req.BrandVoice = v

	for _, t := range genTypes {
		c, err := campaign.ParseContentType(t)
		if err != nil {
			return req, err
		}
		if !req.Has(c) {
			req.ContentTypes = append(req.ContentTypes, c)
		}
	}

	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w (use --topic)", err)
	}
	return req, nil
}

func writeExport(path string, r *campaign.Result) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".html") {
		page, err := export.HTML(r)
		if err != nil {
			return err
		}
		data = page
	} else {
		data = []byte(export.Markdown(r))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// --- agents command ---

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Show the configured agents and transport",
	Run: func(cmd *cobra.Command, args []string) {
		ids := cfg.Agent.IDs()
		fmt.Printf("Transport: %s\n", cfg.Agent.Transport)
		if cfg.Agent.Transport == config.TransportHTTP {
			endpoint := cfg.Agent.Endpoint
			if endpoint == "" {
				endpoint = "(not set)"
			}
			fmt.Printf("Endpoint:  %s\n", endpoint)
		}
		fmt.Println("\nAgents:")
		for _, id := range []string{ids.Manager, ids.ContentWriter, ids.SEOAnalyst, ids.GraphicsDesigner} {
			marker := " "
			if id == ids.Manager {
				marker = "*"
			}
			fmt.Printf("  %s %-18s %s\n", marker, ids.Name(id), id)
		}
		fmt.Println("\n* addressed directly; it coordinates the others.")
	},
}

// --- render command ---

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render campaign markdown to the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening input: %w", err)
			}
			defer f.Close()
			in = f
		}

		text, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		fmt.Print(markdown.Terminal(markdown.Render(string(text))))
		return nil
	},
}

func newInvoker(forceSample bool) (agent.Invoker, error) {
	transport := cfg.Agent.Transport
	if forceSample {
		transport = config.TransportSample
	}

	switch transport {
	case config.TransportSample:
		logger.Log.Info("Using the built-in sample campaign")
		return agent.SampleInvoker{}, nil
	case config.TransportLLM:
		l := cfg.LLM
		provider := llm.CreateProvider(l.Provider, l.Model, l.OllamaURL, l.OpenAIModel, l.APIKeyEnv, l.OpenAIBaseURL)
		if provider == nil {
			return nil, errors.New("no LLM provider available for the llm transport")
		}
		return agent.NewLLMInvoker(provider, l.MaxTokens), nil
	}

	inv := agent.NewHTTPInvoker(cfg.Agent.Endpoint, cfg.Agent.APIKeyEnv, cfg.Agent.Timeout())
	if !inv.IsConfigured() {
		return nil, errors.New("no agent endpoint configured; set agent.endpoint in the config or use --sample")
	}
	if inv.APIKey == "" {
		logger.Log.Warnf("%s is not set; calling the agent without an API key", cfg.Agent.APIKeyEnv)
	}
	return inv, nil
}

func newInspirer() *inspire.Inspirer {
	in := cfg.Inspiration
	feeds := make([]inspire.FeedSource, len(in.Feeds))
	for i, f := range in.Feeds {
		feeds[i] = inspire.FeedSource{URL: f.URL, Name: f.Name}
	}
	insp := inspire.New(feeds, in.MaxItems, in.FetchTimeout())
	if in.NewsAPI.Enabled {
		news := inspire.NewNewsAPIClient(in.NewsAPI.APIKeyEnv)
		if !news.IsConfigured() {
			logger.Log.Warnf("NewsAPI enabled but %s is not set", in.NewsAPI.APIKeyEnv)
		}
		insp.UseNewsAPI(news, in.NewsAPI.Query)
	}
	return insp
}
