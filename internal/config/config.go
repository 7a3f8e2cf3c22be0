package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates every setting the service needs.
type Config struct {
	Server  ServerConfig
	Agent   AgentConfig
	FAQ     FAQConfig
	Session SessionConfig
	Report  ReportConfig
	OCR     OCRConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	faqCfg, err := loadFAQConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Agent:   agent,
		FAQ:     faqCfg,
		Session: session,
		Report:  ReportConfig{Dir: getEnvOrDefault("REPORT_DIR", "pdfs")},
		OCR:     OCRConfig{Languages: splitList(os.Getenv("OCR_LANGUAGES"))},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "9999"
	}

	if strings.Contains(port, ":") {
		// Accept ":9999" or "127.0.0.1:9999" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AgentConfig describes the model providers and the agent loop.
type AgentConfig struct {
	GroqAPIKey       string
	GroqBaseURL      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AllowedModels    []string
	MaxSteps         int
	SearchMaxResults int
	ArxivMaxResults  int
	ArxivMaxChars    int
}

// Enabled reports whether at least one provider credential is present.
func (c AgentConfig) Enabled() bool {
	return c.GroqAPIKey != "" || c.OpenAIAPIKey != ""
}

// defaultAllowedModels mirrors the model allow-list exposed by the UI.
var defaultAllowedModels = []string{
	"llama3-70b-8192",
	"mixtral-8x7b-32768",
	"llama-3.3-70b-versatile",
	"gpt-4o-mini",
}

func loadAgentConfig() (AgentConfig, error) {
	maxSteps := 10
	if override, err := parseOptionalIntEnv("AGENT_MAX_STEPS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		maxSteps = *override
	}

	searchResults := 2
	if override, err := parseOptionalIntEnv("AGENT_SEARCH_MAX_RESULTS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		searchResults = *override
	}

	arxivResults := 2
	if override, err := parseOptionalIntEnv("AGENT_ARXIV_MAX_RESULTS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		arxivResults = *override
	}

	arxivChars := 500
	if override, err := parseOptionalIntEnv("AGENT_ARXIV_MAX_CHARS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		arxivChars = *override
	}

	allowed := splitList(os.Getenv("AGENT_ALLOWED_MODELS"))
	if len(allowed) == 0 {
		allowed = defaultAllowedModels
	}

	return AgentConfig{
		GroqAPIKey:       strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL:      getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		OpenAIAPIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:    getEnvOrDefault("OPENAI_BASE_URL", ""),
		AllowedModels:    allowed,
		MaxSteps:         maxSteps,
		SearchMaxResults: searchResults,
		ArxivMaxResults:  arxivResults,
		ArxivMaxChars:    arxivChars,
	}, nil
}

// FAQConfig describes the static FAQ table and the match threshold.
type FAQConfig struct {
	Path      string
	Threshold float64
}

func loadFAQConfig() (FAQConfig, error) {
	threshold := 0.8
	if raw := strings.TrimSpace(os.Getenv("FAQ_MATCH_THRESHOLD")); raw != "" {
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return FAQConfig{}, fmt.Errorf("invalid FAQ_MATCH_THRESHOLD value %q: %w", raw, err)
		}
		if val <= 0 || val > 1 {
			return FAQConfig{}, fmt.Errorf("FAQ_MATCH_THRESHOLD must be in (0, 1], got %v", val)
		}
		threshold = val
	}

	return FAQConfig{
		Path:      strings.TrimSpace(os.Getenv("FAQ_FILE")),
		Threshold: threshold,
	}, nil
}

// SessionConfig bounds per-session history.
type SessionConfig struct {
	Capacity int
}

func loadSessionConfig() (SessionConfig, error) {
	capacity := 20
	if override, err := parseOptionalIntEnv("SESSION_HISTORY_CAPACITY"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return SessionConfig{}, fmt.Errorf("SESSION_HISTORY_CAPACITY must be positive, got %d", *override)
		}
		capacity = *override
	}
	return SessionConfig{Capacity: capacity}, nil
}

// ReportConfig describes PDF report output.
type ReportConfig struct {
	Dir string
}

// OCRConfig describes the tesseract engine.
type OCRConfig struct {
	Languages []string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
