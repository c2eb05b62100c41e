// Package config resolves runtime configuration at process start.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/faceless-truth/mcs-platform/internal/common"
)

// Classification holds the tunable confidence thresholds. These are
// configuration, not constants: auto-accept short-circuits the AI call on
// a learned hit, review flags low-confidence suggestions for a human.
type Classification struct {
	AutoAcceptThreshold float64
	ReviewThreshold     float64
	TrustThreshold      int
	AITimeout           time.Duration
	MaxWorkers          int
}

// AI configures the external classifier client.
type AI struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Ingest bounds the upload boundary.
type Ingest struct {
	MaxDocumentBytes int64
}

// Server configures the review/webhook HTTP surface.
type Server struct {
	ListenAddr    string
	WebhookSecret string
}

// Config is the full application configuration.
type Config struct {
	DatabasePath   string
	Classification Classification
	AI             AI
	Ingest         Ingest
	Server         Server
	// GSTRegistered controls whether GST components are calculated on
	// confirmation. Applies to every entity served by this deployment.
	GSTRegistered bool
}

// SetDefaults registers default values on the shared viper instance.
func SetDefaults() {
	viper.SetDefault("classification.auto_accept_threshold", 0.90)
	viper.SetDefault("classification.review_threshold", 0.60)
	viper.SetDefault("classification.trust_threshold", 5)
	viper.SetDefault("classification.ai_timeout", "8s")
	viper.SetDefault("classification.max_workers", 5)

	viper.SetDefault("ai.provider", "anthropic")
	viper.SetDefault("ai.max_retries", 3)
	viper.SetDefault("ai.retry_delay", "1s")
	viper.SetDefault("ai.cache_ttl", "15m")
	viper.SetDefault("ai.rate_limit", 60)
	viper.SetDefault("ai.temperature", 0.3)
	viper.SetDefault("ai.max_tokens", 1024)

	viper.SetDefault("ingest.max_document_bytes", 20<<20)

	viper.SetDefault("entity.gst_registered", true)

	viper.SetDefault("server.listen_addr", ":8400")
}

// Load builds a Config from the shared viper instance.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: viper.GetString("database.path"),
		Classification: Classification{
			AutoAcceptThreshold: viper.GetFloat64("classification.auto_accept_threshold"),
			ReviewThreshold:     viper.GetFloat64("classification.review_threshold"),
			TrustThreshold:      viper.GetInt("classification.trust_threshold"),
			AITimeout:           viper.GetDuration("classification.ai_timeout"),
			MaxWorkers:          viper.GetInt("classification.max_workers"),
		},
		AI: AI{
			Provider:    viper.GetString("ai.provider"),
			APIKey:      viper.GetString("ai.api_key"),
			Model:       viper.GetString("ai.model"),
			MaxRetries:  viper.GetInt("ai.max_retries"),
			RetryDelay:  viper.GetDuration("ai.retry_delay"),
			CacheTTL:    viper.GetDuration("ai.cache_ttl"),
			RateLimit:   viper.GetInt("ai.rate_limit"),
			Temperature: viper.GetFloat64("ai.temperature"),
			MaxTokens:   viper.GetInt("ai.max_tokens"),
		},
		Ingest: Ingest{
			MaxDocumentBytes: viper.GetInt64("ingest.max_document_bytes"),
		},
		Server: Server{
			ListenAddr:    viper.GetString("server.listen_addr"),
			WebhookSecret: viper.GetString("server.webhook_secret"),
		},
		GSTRegistered: viper.GetBool("entity.gst_registered"),
	}

	if cfg.DatabasePath == "" {
		path, err := DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		cfg.DatabasePath = path
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	cl := c.Classification
	if cl.AutoAcceptThreshold < 0 || cl.AutoAcceptThreshold > 1 {
		return fmt.Errorf("%w: auto_accept_threshold must be in [0,1]", common.ErrInvalidConfig)
	}
	if cl.ReviewThreshold < 0 || cl.ReviewThreshold > cl.AutoAcceptThreshold {
		return fmt.Errorf("%w: review_threshold must be in [0, auto_accept_threshold]", common.ErrInvalidConfig)
	}
	if c.Ingest.MaxDocumentBytes <= 0 {
		return fmt.Errorf("%w: ingest.max_document_bytes must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// DefaultDatabasePath returns the standard database location.
func DefaultDatabasePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "mcs", "mcs.db"), nil
}
