package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Veraticus/offer-reconciler/internal/common"
	"github.com/Veraticus/offer-reconciler/internal/engine"
	"github.com/Veraticus/offer-reconciler/internal/matcher"
)

// DefaultDatabasePath is where comparison history lives unless configured.
const DefaultDatabasePath = "~/.local/share/reconcile/history.db"

// Config is the typed view of the configuration file.
type Config struct {
	Logging       LoggingConfig
	Database      DatabaseConfig
	Monitoring    MonitoringConfig
	Notifications NotificationsConfig
	Processing    ProcessingConfig
}

// ProcessingConfig holds the reconciliation settings.
type ProcessingConfig struct {
	PriceTolerance         decimal.Decimal
	PriceAbsoluteFallback  decimal.Decimal
	QuantityTolerance      decimal.Decimal
	TotalTolerance         decimal.Decimal
	SeverityFloor          decimal.Decimal
	SeverityMedium         decimal.Decimal
	SeverityHigh           decimal.Decimal
	QuantityMode           string
	TieBreak               string
	DescriptionSimilarity  float64
	Workers                int
	TrackPartialDeliveries bool
	StrictDisambiguation   bool
}

// MonitoringConfig controls the folder watcher.
type MonitoringConfig struct {
	OffersFolder   string
	InvoicesFolder string
	CheckInterval  time.Duration
	Debounce       time.Duration
	PendingExpiry  time.Duration
	Enabled        bool
}

// NotificationsConfig groups the notification channels.
type NotificationsConfig struct {
	Slack SlackConfig
}

// SlackConfig controls the Slack webhook notifier.
type SlackConfig struct {
	PriceThreshold              decimal.Decimal
	QuantityThreshold           decimal.Decimal
	WebhookURL                  string
	Channel                     string
	Timeout                     time.Duration
	MaxRetries                  int
	Enabled                     bool
	NotifyPriceDiscrepancies    bool
	NotifyQuantityMismatches    bool
	NotifyMissingItems          bool
	NotifyExtraItems            bool
	NotifySuccessfulComparisons bool
}

// DatabaseConfig locates the history database.
type DatabaseConfig struct {
	Path          string
	RetentionDays int
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("processing.price_tolerance", "0.02")
	v.SetDefault("processing.price_absolute_fallback", "0.01")
	v.SetDefault("processing.quantity_tolerance", "0")
	v.SetDefault("processing.quantity_tolerance_mode", string(engine.QuantityAbsolute))
	v.SetDefault("processing.total_tolerance", "0.01")
	v.SetDefault("processing.track_partial_deliveries", true)
	v.SetDefault("processing.strict_disambiguation", false)
	v.SetDefault("processing.tie_break", string(matcher.TieBreakFirstUnfilled))
	v.SetDefault("processing.description_similarity", 0.85)
	v.SetDefault("processing.severity.floor", "0.05")
	v.SetDefault("processing.severity.medium", "1")
	v.SetDefault("processing.severity.high", "2")
	v.SetDefault("processing.workers", 4)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.check_interval", "5s")
	v.SetDefault("monitoring.debounce", "2s")
	v.SetDefault("monitoring.pending_expiry", "24h")
	v.SetDefault("monitoring.folders.offers", "")
	v.SetDefault("monitoring.folders.invoices", "")

	v.SetDefault("notifications.slack.enabled", false)
	v.SetDefault("notifications.slack.webhook_url", "")
	v.SetDefault("notifications.slack.channel", "#pdf-comparison-alerts")
	v.SetDefault("notifications.slack.timeout", "10s")
	v.SetDefault("notifications.slack.max_retries", 3)
	v.SetDefault("notifications.slack.notify_on.price_discrepancies", true)
	v.SetDefault("notifications.slack.notify_on.quantity_mismatches", true)
	v.SetDefault("notifications.slack.notify_on.missing_items", true)
	v.SetDefault("notifications.slack.notify_on.extra_items", true)
	v.SetDefault("notifications.slack.notify_on.successful_comparisons", false)
	v.SetDefault("notifications.slack.thresholds.price_difference", "0")
	v.SetDefault("notifications.slack.thresholds.quantity_difference", "0")

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.retention_days", 90)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads a typed configuration from v. Defaults are registered first
// so an empty viper yields the default configuration.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	p := &decimalParser{v: v}
	base := configDir(v.ConfigFileUsed())
	cfg := &Config{
		Processing: ProcessingConfig{
			PriceTolerance:         p.get("processing.price_tolerance"),
			PriceAbsoluteFallback:  p.get("processing.price_absolute_fallback"),
			QuantityTolerance:      p.get("processing.quantity_tolerance"),
			TotalTolerance:         p.get("processing.total_tolerance"),
			SeverityFloor:          p.get("processing.severity.floor"),
			SeverityMedium:         p.get("processing.severity.medium"),
			SeverityHigh:           p.get("processing.severity.high"),
			QuantityMode:           v.GetString("processing.quantity_tolerance_mode"),
			TieBreak:               v.GetString("processing.tie_break"),
			DescriptionSimilarity:  v.GetFloat64("processing.description_similarity"),
			Workers:                v.GetInt("processing.workers"),
			TrackPartialDeliveries: v.GetBool("processing.track_partial_deliveries"),
			StrictDisambiguation:   v.GetBool("processing.strict_disambiguation"),
		},
		Monitoring: MonitoringConfig{
			Enabled:        v.GetBool("monitoring.enabled"),
			CheckInterval:  v.GetDuration("monitoring.check_interval"),
			Debounce:       v.GetDuration("monitoring.debounce"),
			PendingExpiry:  v.GetDuration("monitoring.pending_expiry"),
			OffersFolder:   ResolvePath(v.GetString("monitoring.folders.offers"), base),
			InvoicesFolder: ResolvePath(v.GetString("monitoring.folders.invoices"), base),
		},
		Notifications: NotificationsConfig{
			Slack: SlackConfig{
				Enabled:                     v.GetBool("notifications.slack.enabled"),
				WebhookURL:                  v.GetString("notifications.slack.webhook_url"),
				Channel:                     v.GetString("notifications.slack.channel"),
				Timeout:                     v.GetDuration("notifications.slack.timeout"),
				MaxRetries:                  v.GetInt("notifications.slack.max_retries"),
				NotifyPriceDiscrepancies:    v.GetBool("notifications.slack.notify_on.price_discrepancies"),
				NotifyQuantityMismatches:    v.GetBool("notifications.slack.notify_on.quantity_mismatches"),
				NotifyMissingItems:          v.GetBool("notifications.slack.notify_on.missing_items"),
				NotifyExtraItems:            v.GetBool("notifications.slack.notify_on.extra_items"),
				NotifySuccessfulComparisons: v.GetBool("notifications.slack.notify_on.successful_comparisons"),
				PriceThreshold:              p.get("notifications.slack.thresholds.price_difference"),
				QuantityThreshold:           p.get("notifications.slack.thresholds.quantity_difference"),
			},
		},
		Database: DatabaseConfig{
			Path:          ResolvePath(v.GetString("database.path"), base),
			RetentionDays: v.GetInt("database.retention_days"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings outside the engine's own validation.
func (c *Config) Validate() error {
	if c.Processing.Workers < 1 {
		return fmt.Errorf("%w: processing.workers must be at least 1", common.ErrInvalidConfig)
	}
	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("%w: database.retention_days must not be negative", common.ErrInvalidConfig)
	}
	if c.Notifications.Slack.Enabled && c.Notifications.Slack.WebhookURL == "" {
		return fmt.Errorf("%w: notifications.slack.webhook_url is required when slack is enabled", common.ErrMissingConfig)
	}
	if c.Monitoring.PendingExpiry <= 0 {
		return fmt.Errorf("%w: monitoring.pending_expiry must be positive", common.ErrInvalidConfig)
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// EngineConfig builds the immutable engine configuration.
func (c *Config) EngineConfig() (engine.Config, error) {
	p := c.Processing
	cfg := engine.Config{
		PriceTolerance:        p.PriceTolerance,
		PriceAbsoluteFallback: p.PriceAbsoluteFallback,
		QuantityTolerance:     p.QuantityTolerance,
		TotalTolerance:        p.TotalTolerance,
		Severity: engine.SeverityBands{
			Floor:  p.SeverityFloor,
			Medium: p.SeverityMedium,
			High:   p.SeverityHigh,
		},
		QuantityMode:           engine.QuantityMode(p.QuantityMode),
		TieBreak:               matcher.TieBreak(p.TieBreak),
		DescriptionSimilarity:  p.DescriptionSimilarity,
		TrackPartialDeliveries: p.TrackPartialDeliveries,
		StrictDisambiguation:   p.StrictDisambiguation,
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// Retention returns the history retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

// decimalParser reads decimal settings and keeps the first failure.
type decimalParser struct {
	v   *viper.Viper
	err error
}

func (p *decimalParser) get(key string) decimal.Decimal {
	raw := p.v.GetString(key)
	d, err := decimal.NewFromString(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: %s: %q is not a number", common.ErrInvalidConfig, key, raw)
	}
	return d
}
