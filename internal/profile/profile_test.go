package profile

import (
	"os"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"OpenAIBaseURL default", "https://api.openai.com/v1", profile.OpenAIBaseURL},
		{"ChatModel default", "gpt-4o-mini", profile.ChatModel},
		{"TitleModel defaults to ChatModel", "gpt-4o-mini", profile.TitleModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.MaxAgentSteps != 8 {
		t.Errorf("MaxAgentSteps: expected 8, got %d", profile.MaxAgentSteps)
	}
	if profile.HistoryTurns != 20 {
		t.Errorf("HistoryTurns: expected 20, got %d", profile.HistoryTurns)
	}
	if profile.ClientCacheSize != 64 {
		t.Errorf("ClientCacheSize: expected 64, got %d", profile.ClientCacheSize)
	}
}

func TestProfileFromEnv(t *testing.T) {
	clearEnvVars()

	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "STUDYHALL_OPENAI_API_KEY",
			envVar:   "STUDYHALL_OPENAI_API_KEY",
			envValue: "test-key-123",
			field:    func(p *Profile) string { return p.OpenAIAPIKey },
			expected: "test-key-123",
		},
		{
			name:     "STUDYHALL_OPENAI_BASE_URL",
			envVar:   "STUDYHALL_OPENAI_BASE_URL",
			envValue: "https://custom.openai.proxy/v1",
			field:    func(p *Profile) string { return p.OpenAIBaseURL },
			expected: "https://custom.openai.proxy/v1",
		},
		{
			name:     "STUDYHALL_CHAT_MODEL",
			envVar:   "STUDYHALL_CHAT_MODEL",
			envValue: "gpt-4o",
			field:    func(p *Profile) string { return p.ChatModel },
			expected: "gpt-4o",
		},
		{
			name:     "STUDYHALL_TITLE_MODEL",
			envVar:   "STUDYHALL_TITLE_MODEL",
			envValue: "gpt-4o-mini",
			field:    func(p *Profile) string { return p.TitleModel },
			expected: "gpt-4o-mini",
		},
		{
			name:     "STUDYHALL_CANVAS_BASE_URL",
			envVar:   "STUDYHALL_CANVAS_BASE_URL",
			envValue: "https://canvas.school.edu",
			field:    func(p *Profile) string { return p.CanvasBaseURL },
			expected: "https://canvas.school.edu",
		},
		{
			name:     "STUDYHALL_JWT_SECRET",
			envVar:   "STUDYHALL_JWT_SECRET",
			envValue: "sekrit",
			field:    func(p *Profile) string { return p.JWTSecret },
			expected: "sekrit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			os.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			actual := tt.field(profile)
			if actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestProfileNumericEnvVars(t *testing.T) {
	clearEnvVars()
	os.Setenv("STUDYHALL_MAX_AGENT_STEPS", "12")
	os.Setenv("STUDYHALL_HISTORY_TURNS", "50")
	os.Setenv("STUDYHALL_CHAT_RATE_PER_MIN", "2.5")
	os.Setenv("STUDYHALL_CHAT_RATE_BURST", "9")
	os.Setenv("STUDYHALL_CLIENT_CACHE_SIZE", "128")
	defer clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	if profile.MaxAgentSteps != 12 {
		t.Errorf("MaxAgentSteps: expected 12, got %d", profile.MaxAgentSteps)
	}
	if profile.HistoryTurns != 50 {
		t.Errorf("HistoryTurns: expected 50, got %d", profile.HistoryTurns)
	}
	if profile.ChatRatePerMin != 2.5 {
		t.Errorf("ChatRatePerMin: expected 2.5, got %v", profile.ChatRatePerMin)
	}
	if profile.ChatRateBurst != 9 {
		t.Errorf("ChatRateBurst: expected 9, got %d", profile.ChatRateBurst)
	}
	if profile.ClientCacheSize != 128 {
		t.Errorf("ClientCacheSize: expected 128, got %d", profile.ClientCacheSize)
	}
}

func TestProfileNumericEnvVarsFallBackOnGarbage(t *testing.T) {
	clearEnvVars()
	os.Setenv("STUDYHALL_MAX_AGENT_STEPS", "many")
	os.Setenv("STUDYHALL_HISTORY_TURNS", "-3")
	os.Setenv("STUDYHALL_CHAT_RATE_PER_MIN", "")
	defer clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	if profile.MaxAgentSteps != 8 {
		t.Errorf("MaxAgentSteps: expected default 8, got %d", profile.MaxAgentSteps)
	}
	if profile.HistoryTurns != 20 {
		t.Errorf("HistoryTurns: expected default 20, got %d", profile.HistoryTurns)
	}
	if profile.ChatRatePerMin != 20 {
		t.Errorf("ChatRatePerMin: expected default 20, got %v", profile.ChatRatePerMin)
	}
}

func TestIsChatEnabled(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(*Profile)
		expectedResult bool
	}{
		{
			name:           "no API key should return false",
			setup:          func(p *Profile) { p.OpenAIAPIKey = "" },
			expectedResult: false,
		},
		{
			name:           "API key present should return true",
			setup:          func(p *Profile) { p.OpenAIAPIKey = "test-key" },
			expectedResult: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &Profile{}
			tt.setup(profile)
			result := profile.IsChatEnabled()
			if result != tt.expectedResult {
				t.Errorf("IsChatEnabled(): expected %v, got %v", tt.expectedResult, result)
			}
		})
	}
}

func clearEnvVars() {
	envVars := []string{
		"STUDYHALL_JWT_SECRET",
		"STUDYHALL_OPENAI_API_KEY",
		"STUDYHALL_OPENAI_BASE_URL",
		"STUDYHALL_CHAT_MODEL",
		"STUDYHALL_TITLE_MODEL",
		"STUDYHALL_CANVAS_BASE_URL",
		"STUDYHALL_MAX_AGENT_STEPS",
		"STUDYHALL_HISTORY_TURNS",
		"STUDYHALL_CHAT_RATE_PER_MIN",
		"STUDYHALL_CHAT_RATE_BURST",
		"STUDYHALL_CLIENT_CACHE_SIZE",
	}
	for _, envVar := range envVars {
		os.Unsetenv(envVar)
	}
}
