package di

import (
	"flag"

	"github.com/mikey/usenet-explorer/internal/config"
)

// CLIFlags contains all command line flags for the explorer application
type CLIFlags struct {
	// Provider flags
	Host     string
	Port     int
	NoTLS    bool
	Username string
	Password string

	// Operation flags
	List       bool
	Refresh    bool
	Check      bool
	Pattern    string
	Period     string
	Poster     string
	Topic      string
	WithBody   bool
	Raw        bool
	MaxGroups  int
	MaxResults int

	// LLM provider flags
	Provider        string
	OpenAIAPIKey    string
	OpenAIModelName string
	GeminiAPIKey    string
	GeminiModelName string
	BedrockRegion   string
	BedrockModelID  string

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Provider flags
	flag.StringVar(&flags.Host, "host", "", "News provider hostname")
	flag.IntVar(&flags.Port, "port", 0, "News provider port (default 563 with TLS, 119 without)")
	flag.BoolVar(&flags.NoTLS, "no-tls", false, "Disable TLS for the provider connection")
	flag.StringVar(&flags.Username, "username", "", "Provider username")
	flag.StringVar(&flags.Password, "password", "", "Provider password")

	// Operation flags
	flag.BoolVar(&flags.List, "list", false, "List the cached group catalog")
	flag.BoolVar(&flags.Refresh, "refresh", false, "Force a catalog refresh from the provider")
	flag.BoolVar(&flags.Check, "check", false, "Test the provider connection and exit")
	flag.StringVar(&flags.Pattern, "pattern", "", "Group name or shell glob pattern to search")
	flag.StringVar(&flags.Period, "period", "week", "Time window: week, month, or a number of days")
	flag.StringVar(&flags.Poster, "poster", "", "Poster name or address to look for")
	flag.StringVar(&flags.Topic, "topic", "", "Topic keywords to look for")
	flag.BoolVar(&flags.WithBody, "with-body", false, "Fetch bodies of the top candidates for deeper scoring")
	flag.BoolVar(&flags.Raw, "raw", false, "Skip relevance scoring, list raw headers")
	flag.IntVar(&flags.MaxGroups, "max-groups", 0, "Cap on groups matched by a pattern")
	flag.IntVar(&flags.MaxResults, "max-results", 0, "Cap on results printed")

	// LLM provider flags
	flag.StringVar(&flags.Provider, "provider", "", "Relevance provider (keyword, openai, gemini, bedrock)")
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "", "OpenAI model name")
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "", "Gemini model name")
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "", "Bedrock model ID")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	flag.Parse()
	return flags
}

// applyFlags overlays non-empty flag values onto the configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	if flags.Host != "" {
		v.Set("provider.host", flags.Host)
	}
	if flags.Port != 0 {
		v.Set("provider.port", flags.Port)
	}
	if flags.NoTLS {
		v.Set("provider.tls", false)
	}
	if flags.Username != "" {
		v.Set("provider.username", flags.Username)
	}
	if flags.Password != "" {
		v.Set("provider.password", flags.Password)
	}

	if flags.MaxGroups > 0 {
		v.Set("fetch.max_groups", flags.MaxGroups)
	}

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	if flags.OpenAIAPIKey != "" {
		v.Set("openai.api_key", flags.OpenAIAPIKey)
	}
	if flags.OpenAIModelName != "" {
		v.Set("openai.model_name", flags.OpenAIModelName)
	}
	if flags.GeminiAPIKey != "" {
		v.Set("gemini.api_key", flags.GeminiAPIKey)
	}
	if flags.GeminiModelName != "" {
		v.Set("gemini.model_name", flags.GeminiModelName)
	}
	if flags.BedrockRegion != "" {
		v.Set("bedrock.region", flags.BedrockRegion)
	}
	if flags.BedrockModelID != "" {
		v.Set("bedrock.model_id", flags.BedrockModelID)
	}
}
