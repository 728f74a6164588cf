package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Pipeline holds the settings handed to each collection stage.
type Pipeline struct {
	APIKey              string
	PlacesBaseURL       string
	RateLimitDelay      time.Duration
	MediaDelay          time.Duration
	MaxPhotos           int
	PhotoMaxWidth       int
	HomeState           string
	TargetState         string
	CheckPersistedSlugs bool
	RulesFile           string
	MetroFile           string
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL     string
	JWTSecret       string
	Port            string
	TokenTTL        time.Duration
	RateLimitPhoto  RateLimitConfig
	RedisURL        string
	PhotoCacheTTL   time.Duration
	StorageBucket   string
	CredentialsFile string
	PublicDir       string
	LogLevel        string
	Pipeline        Pipeline
}

var envFiles = []string{".env.local", ".env"}

// Load reads .env.local and .env when present, then environment variables,
// and applies sane defaults.
func Load() (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	v := newViper()
	cfg := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		Port:            v.GetString("PORT"),
		TokenTTL:        parseDuration(v.GetString("JWT_TTL")),
		RedisURL:        v.GetString("REDIS_URL"),
		PhotoCacheTTL:   v.GetDuration("PHOTO_CACHE_TTL"),
		StorageBucket:   v.GetString("STORAGE_BUCKET"),
		CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		PublicDir:       v.GetString("PUBLIC_DIR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		Pipeline: Pipeline{
			APIKey:              v.GetString("GOOGLE_PLACES_API_KEY"),
			PlacesBaseURL:       v.GetString("PLACES_BASE_URL"),
			RateLimitDelay:      v.GetDuration("RATE_LIMIT_DELAY"),
			MediaDelay:          v.GetDuration("MEDIA_DELAY"),
			MaxPhotos:           v.GetInt("MAX_PHOTOS"),
			PhotoMaxWidth:       v.GetInt("PHOTO_MAX_WIDTH"),
			HomeState:           v.GetString("HOME_STATE"),
			TargetState:         v.GetString("TARGET_STATE"),
			CheckPersistedSlugs: v.GetBool("CHECK_PERSISTED_SLUGS"),
			RulesFile:           v.GetString("RULES_FILE"),
			MetroFile:           v.GetString("METRO_FILE"),
		},
	}

	rl, err := parseRateLimit(v.GetString("RATE_LIMIT_PHOTO"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PHOTO value: %w", err)
	}
	cfg.RateLimitPhoto = rl

	if cfg.Pipeline.MaxPhotos <= 0 {
		return nil, fmt.Errorf("invalid MAX_PHOTOS value: %d", cfg.Pipeline.MaxPhotos)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("JWT_SECRET", "dev-secret")
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RATE_LIMIT_PHOTO", "60/min")
	v.SetDefault("PHOTO_CACHE_TTL", "24h")
	v.SetDefault("STORAGE_BUCKET", "bounce-heads-images")
	v.SetDefault("PUBLIC_DIR", "public")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_DELAY", "100ms")
	v.SetDefault("MEDIA_DELAY", "200ms")
	v.SetDefault("MAX_PHOTOS", 5)
	v.SetDefault("PHOTO_MAX_WIDTH", 800)
	v.SetDefault("HOME_STATE", "Texas")
	v.SetDefault("TARGET_STATE", "Texas")
	v.SetDefault("CHECK_PERSISTED_SLUGS", true)
	return v
}

// loadEnvFiles loads each file that exists. Variables already set in the
// environment win over file values.
func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func parseDuration(input string) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
