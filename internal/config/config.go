package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/CampaignCenter/internal/agent"
	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Agent       Agent               `yaml:"agent"`
	LLM         LLM                 `yaml:"llm"`
	Server      Server              `yaml:"server"`
	Inspiration Inspiration         `yaml:"inspiration"`
	Templates   []campaign.Template `yaml:"templates"`
	Logging     Logging             `yaml:"logging"`
}

// Agent selects how the coordinating agent is reached.
type Agent struct {
	Transport        string `yaml:"transport"`
	Endpoint         string `yaml:"endpoint"`
	APIKeyEnv        string `yaml:"api_key_env"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	Manager          string `yaml:"manager"`
	ContentWriter    string `yaml:"content_writer"`
	SEOAnalyst       string `yaml:"seo_analyst"`
	GraphicsDesigner string `yaml:"graphics_designer"`
}

type LLM struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	OllamaURL     string `yaml:"ollama_url"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	MaxTokens     int    `yaml:"max_tokens"`
}

type Server struct {
	Port              int `yaml:"port"`
	GeneratePerMinute int `yaml:"generate_per_minute"`
	GenerateBurst     int `yaml:"generate_burst"`
}

type Inspiration struct {
	Feeds               []Feed  `yaml:"feeds"`
	NewsAPI             NewsAPI `yaml:"newsapi"`
	MaxItems            int     `yaml:"max_items"`
	FetchTimeoutSeconds int     `yaml:"fetch_timeout_seconds"`
}

// NewsAPI configures the optional news search on the inspiration page.
type NewsAPI struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Transport values for Agent.Transport.
const (
	TransportHTTP   = "http"
	TransportLLM    = "llm"
	TransportSample = "sample"
)

// ConfigDir returns the XDG config directory for campaigncenter.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "campaigncenter")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/campaigncenter/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'campaigncenter init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Agent: Agent{
			Transport:        TransportHTTP,
			APIKeyEnv:        "CAMPAIGN_AGENT_API_KEY",
			TimeoutSeconds:   180,
			Manager:          agent.DefaultManagerID,
			ContentWriter:    agent.DefaultContentWriterID,
			SEOAnalyst:       agent.DefaultSEOAnalystID,
			GraphicsDesigner: agent.DefaultGraphicsDesignerID,
		},
		LLM: LLM{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   2048,
		},
		Server: Server{Port: 8000, GeneratePerMinute: 6, GenerateBurst: 2},
		Inspiration: Inspiration{
			NewsAPI: NewsAPI{
				APIKeyEnv: "NEWSAPI_KEY",
				Query:     "marketing campaign",
			},
			MaxItems:            10,
			FetchTimeoutSeconds: 15,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.Agent.Transport {
	case TransportHTTP, TransportLLM, TransportSample:
	default:
		return nil, fmt.Errorf("parsing config: unknown agent transport %q", cfg.Agent.Transport)
	}

	if len(cfg.Templates) == 0 {
		cfg.Templates = append([]campaign.Template(nil), campaign.DefaultTemplates...)
	}
	for i, t := range cfg.Templates {
		a, err := campaign.ParseAudience(string(t.Audience))
		if err != nil {
			return nil, fmt.Errorf("parsing config: template %q: %w", t.Title, err)
		}
		v, err := campaign.ParseBrandVoice(string(t.Voice))
		if err != nil {
			return nil, fmt.Errorf("parsing config: template %q: %w", t.Title, err)
		}
		cfg.Templates[i].Audience, cfg.Templates[i].Voice = a, v
	}

	return cfg, nil
}

// IDs returns the configured agent identifiers.
func (a Agent) IDs() agent.IDs {
	return agent.IDs{
		Manager:          a.Manager,
		ContentWriter:    a.ContentWriter,
		SEOAnalyst:       a.SEOAnalyst,
		GraphicsDesigner: a.GraphicsDesigner,
	}
}

// Timeout returns the agent call timeout; zero means unbounded.
func (a Agent) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// FetchTimeout returns the inspiration fetch timeout.
func (i Inspiration) FetchTimeout() time.Duration {
	if i.FetchTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(i.FetchTimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
