package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProviderConfig represents the configuration for the news provider
type ProviderConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	Timeout  time.Duration
}

// CacheConfig represents the configuration for the catalog snapshot cache
type CacheConfig struct {
	Type       string
	Path       string
	MaxAge     time.Duration
	PageSize   int
	SQLitePath string
	MySQLDSN   string
}

// FetchConfig represents the configuration for header retrieval
type FetchConfig struct {
	Concurrency int
	MaxGroups   int
}

// SearchConfig represents the configuration for relevance filtering
type SearchConfig struct {
	MinConfidence float64
	BodyTopK      int
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetProvider returns the news provider configuration
func (c *Config) GetProvider() ProviderConfig {
	timeout, err := c.GetDuration("provider.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return ProviderConfig{
		Host:     c.GetString("provider.host"),
		Port:     c.GetInt("provider.port"),
		TLS:      c.GetBool("provider.tls"),
		Username: c.GetString("provider.username"),
		Password: c.GetString("provider.password"),
		Timeout:  timeout,
	}
}

// GetCache returns the catalog cache configuration
func (c *Config) GetCache() CacheConfig {
	maxAge, err := c.GetDuration("cache.max_age")
	if err != nil {
		maxAge = 24 * time.Hour
	}
	return CacheConfig{
		Type:       c.GetString("cache.type"),
		Path:       expandHome(c.GetString("cache.path")),
		MaxAge:     maxAge,
		PageSize:   c.GetInt("cache.page_size"),
		SQLitePath: c.GetString("cache.sqlite_path"),
		MySQLDSN:   c.GetString("cache.mysql_dsn"),
	}
}

// GetFetch returns the header retrieval configuration
func (c *Config) GetFetch() FetchConfig {
	return FetchConfig{
		Concurrency: c.GetInt("fetch.concurrency"),
		MaxGroups:   c.GetInt("fetch.max_groups"),
	}
}

// GetSearch returns the relevance filtering configuration
func (c *Config) GetSearch() SearchConfig {
	return SearchConfig{
		MinConfidence: c.GetFloat64("search.min_confidence"),
		BodyTopK:      c.GetInt("search.body_top_k"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// expandHome resolves a leading $HOME or ~ in a filesystem path.
func expandHome(path string) string {
	if path == "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	switch {
	case path == "~" || path == "$HOME":
		return home
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	case strings.HasPrefix(path, "$HOME/"):
		return filepath.Join(home, path[6:])
	}
	return path
}
