package instagram

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all pipeline configuration loaded from environment variables.
// It is passed into constructors explicitly; there is no process-wide
// mutable settings state.
type Config struct {
	// Instagram credentials for interactive login.
	Username string
	Password string

	// SessionFile is where the authenticated session is persisted.
	SessionFile string

	// Apify acquisition backend.
	ApifyToken   string
	ApifyActorID string
	ApifyBaseURL string
	PollInterval time.Duration
	PollAttempts int

	// Whisper-compatible transcription endpoint.
	TranscriberURL   string
	TranscriberToken string
	TranscriberModel string

	// FFmpegBin is the ffmpeg binary used for audio extraction.
	FFmpegBin string

	// DatabasePath is the SQLite file holding scraped records.
	DatabasePath string

	LogLevel string
}

// LoadConfig reads the .env file (if present) and returns a populated Config.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system env vars")
	}

	return &Config{
		Username: getEnv("INSTAGRAM_USERNAME", ""),
		Password: getEnv("INSTAGRAM_PASSWORD", ""),

		SessionFile: getEnv("SESSION_FILE", "sessions/instagram_session.json"),

		ApifyToken:   getEnv("APIFY_TOKEN", ""),
		ApifyActorID: getEnv("APIFY_ACTOR_ID", "apify~instagram-scraper"),
		ApifyBaseURL: getEnv("APIFY_BASE_URL", "https://api.apify.com"),
		PollInterval: time.Duration(getEnvInt("APIFY_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		PollAttempts: getEnvInt("APIFY_POLL_ATTEMPTS", 30),

		TranscriberURL:   getEnv("TRANSCRIBER_URL", ""),
		TranscriberToken: getEnv("TRANSCRIBER_TOKEN", ""),
		TranscriberModel: getEnv("TRANSCRIBER_MODEL", "whisper-1"),

		FFmpegBin: getEnv("FFMPEG_BIN", "ffmpeg"),

		DatabasePath: getEnv("DATABASE_PATH", "instagram_analytics.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// NewLogger creates a console slog.Logger honoring the configured level.
func (c *Config) NewLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromString(c.LogLevel),
	})
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
