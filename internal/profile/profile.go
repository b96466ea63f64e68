package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where studyhall stores its own data
	DSN string
	// Version is the current version of server
	Version string
	// JWTSecret signs and verifies access tokens
	JWTSecret string

	// Model provider configuration
	OpenAIAPIKey  string // STUDYHALL_OPENAI_API_KEY
	OpenAIBaseURL string // STUDYHALL_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	ChatModel     string // STUDYHALL_CHAT_MODEL (default: gpt-4o-mini)
	TitleModel    string // STUDYHALL_TITLE_MODEL (defaults to ChatModel)

	// Integration defaults
	CanvasBaseURL string // STUDYHALL_CANVAS_BASE_URL (default instance URL for Canvas)
	// Google OAuth app credentials, needed to refresh calendar tokens.
	GoogleClientID     string // STUDYHALL_GOOGLE_CLIENT_ID
	GoogleClientSecret string // STUDYHALL_GOOGLE_CLIENT_SECRET

	// Chat limits
	MaxAgentSteps   int     // STUDYHALL_MAX_AGENT_STEPS (default: 8)
	HistoryTurns    int     // STUDYHALL_HISTORY_TURNS (default: 20)
	ChatRatePerMin  float64 // STUDYHALL_CHAT_RATE_PER_MIN (default: 20)
	ChatRateBurst   int     // STUDYHALL_CHAT_RATE_BURST (default: 5)
	ClientCacheSize int     // STUDYHALL_CLIENT_CACHE_SIZE (default: 64)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsChatEnabled reports whether a model provider is configured.
func (p *Profile) IsChatEnabled() bool {
	return p.OpenAIAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from STUDYHALL_* environment variables.
func (p *Profile) FromEnv() {
	p.JWTSecret = os.Getenv("STUDYHALL_JWT_SECRET")
	p.OpenAIAPIKey = os.Getenv("STUDYHALL_OPENAI_API_KEY")
	p.OpenAIBaseURL = getEnvOrDefault("STUDYHALL_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.ChatModel = getEnvOrDefault("STUDYHALL_CHAT_MODEL", "gpt-4o-mini")
	p.TitleModel = getEnvOrDefault("STUDYHALL_TITLE_MODEL", p.ChatModel)
	p.CanvasBaseURL = os.Getenv("STUDYHALL_CANVAS_BASE_URL")
	p.GoogleClientID = os.Getenv("STUDYHALL_GOOGLE_CLIENT_ID")
	p.GoogleClientSecret = os.Getenv("STUDYHALL_GOOGLE_CLIENT_SECRET")

	if p.MaxAgentSteps == 0 {
		p.MaxAgentSteps = getEnvInt("STUDYHALL_MAX_AGENT_STEPS", 8)
	}
	if p.HistoryTurns == 0 {
		p.HistoryTurns = getEnvInt("STUDYHALL_HISTORY_TURNS", 20)
	}
	if p.ChatRatePerMin == 0 {
		p.ChatRatePerMin = getEnvFloat("STUDYHALL_CHAT_RATE_PER_MIN", 20)
	}
	if p.ChatRateBurst == 0 {
		p.ChatRateBurst = getEnvInt("STUDYHALL_CHAT_RATE_BURST", 5)
	}
	if p.ClientCacheSize == 0 {
		p.ClientCacheSize = getEnvInt("STUDYHALL_CLIENT_CACHE_SIZE", 64)
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "studyhall")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/studyhall"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("studyhall_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
