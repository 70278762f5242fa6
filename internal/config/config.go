package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/eonet-report/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all report settings, populated from environment variables.
type Config struct {
	EONETBaseURL      string
	EONETCategories   []string
	EONETStatus       string
	EONETLookbackDays int
	EONETTimeout      time.Duration

	TargetMonth       string
	FilterMode        domain.FilterMode
	Strategy          domain.Strategy
	RecordErrorPolicy domain.ErrorPolicy

	DatabaseURL string

	Recipient    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTLS      bool
	DryRun       bool
	OutputDir    string

	// Optional row publishing; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	PushgatewayURL string

	LogLevel        string
	LogFormat       string
	RunTimeout      time.Duration
	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether stored rows should also be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Overrides carries command-line values that take precedence over the
// environment. Zero fields leave the environment value in place.
type Overrides struct {
	Recipient   string
	TargetMonth string
	OutputDir   string
	DryRun      bool
}

func (o Overrides) apply(c *Config) {
	if o.Recipient != "" {
		c.Recipient = o.Recipient
	}
	if o.TargetMonth != "" {
		c.TargetMonth = o.TargetMonth
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.DryRun {
		c.DryRun = true
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	return LoadWithOverrides(Overrides{})
}

// LoadWithOverrides is Load with command-line overrides applied before validation.
func LoadWithOverrides(o Overrides) (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	eonetTimeout, err := parseDuration("EONET_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	runTimeout, err := parseDuration("RUN_TIMEOUT", "5m")
	if err != nil {
		return nil, err
	}

	lookback, err := parsePositiveInt("EONET_LOOKBACK_DAYS", "60")
	if err != nil {
		return nil, err
	}
	smtpPort, err := parsePositiveInt("SMTP_PORT", "587")
	if err != nil {
		return nil, err
	}

	filterMode, err := domain.ParseFilterMode(sharedcfg.EnvOrDefault("FILTER_MODE", string(domain.FilterExact)))
	if err != nil {
		return nil, fmt.Errorf("invalid FILTER_MODE: %w", err)
	}
	strategy, err := domain.ParseStrategy(sharedcfg.EnvOrDefault("EXTRACTION_STRATEGY", string(domain.FirstOnly)))
	if err != nil {
		return nil, fmt.Errorf("invalid EXTRACTION_STRATEGY: %w", err)
	}
	policy, err := domain.ParseErrorPolicy(sharedcfg.EnvOrDefault("RECORD_ERROR_POLICY", string(domain.AbortOnError)))
	if err != nil {
		return nil, fmt.Errorf("invalid RECORD_ERROR_POLICY: %w", err)
	}

	smtpUsername := os.Getenv("SMTP_USERNAME")

	var kafkaBrokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		kafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		EONETBaseURL:      strings.TrimRight(sharedcfg.EnvOrDefault("EONET_BASE_URL", "https://eonet.gsfc.nasa.gov/api/v2.1"), "/"),
		EONETCategories:   parseList(sharedcfg.EnvOrDefault("EONET_CATEGORIES", strings.Join(domain.DefaultCategories, ","))),
		EONETStatus:       sharedcfg.EnvOrDefault("EONET_STATUS", "closed"),
		EONETLookbackDays: lookback,
		EONETTimeout:      eonetTimeout,

		TargetMonth:       sharedcfg.EnvOrDefault("TARGET_MONTH", domain.DefaultTargetMonth()),
		FilterMode:        filterMode,
		Strategy:          strategy,
		RecordErrorPolicy: policy,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		Recipient:    os.Getenv("REPORT_RECIPIENT"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUsername: smtpUsername,
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     sharedcfg.EnvOrDefault("SMTP_FROM", smtpUsername),
		SMTPTLS:      os.Getenv("SMTP_TLS") != "false",
		DryRun:       os.Getenv("DRY_RUN") == "true",
		OutputDir:    os.Getenv("OUTPUT_DIR"),

		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "eonet-normalized-events"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		RunTimeout:      runTimeout,
		ShutdownTimeout: shutdownTimeout,
	}

	o.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and cross-field constraints.
func (c *Config) Validate() error {
	if len(c.EONETCategories) == 0 {
		return errors.New("EONET_CATEGORIES is required")
	}
	for _, id := range c.EONETCategories {
		if _, err := strconv.Atoi(id); err != nil {
			return fmt.Errorf("invalid EONET_CATEGORIES entry %q", id)
		}
	}
	if c.TargetMonth == "" {
		return errors.New("TARGET_MONTH is required")
	}
	if c.FilterMode == domain.FilterExact {
		if err := domain.ValidateMonth(c.TargetMonth); err != nil {
			return fmt.Errorf("invalid TARGET_MONTH: %w", err)
		}
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.DryRun {
		return nil
	}
	if c.Recipient == "" {
		return errors.New("REPORT_RECIPIENT is required unless DRY_RUN is true")
	}
	if c.SMTPHost == "" {
		return errors.New("SMTP_HOST is required unless DRY_RUN is true")
	}
	if c.SMTPFrom == "" {
		return errors.New("SMTP_FROM or SMTP_USERNAME is required unless DRY_RUN is true")
	}
	if c.SMTPUsername != "" && c.SMTPPassword == "" {
		return errors.New("SMTP_PASSWORD is required when SMTP_USERNAME is set")
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// parseList splits a comma-separated value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
