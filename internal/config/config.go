package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/notify"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/schedule"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/security"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Storage      StorageConfig
	Logging      LoggingConfig
	Schedule     ScheduleConfig
	Reminders    RemindersConfig
	Interactions InteractionsConfig
	Telegram     TelegramConfig
	Azure        AzureConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	OpenAPIValidate bool
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	MigrateOnStart  bool
}

// StorageConfig selects the regimen and dose log store implementation
type StorageConfig struct {
	Driver string // postgres or memory
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// ScheduleConfig tunes how logged doses are matched to reminder slots
type ScheduleConfig struct {
	MatchWindow time.Duration
	MissedAfter time.Duration
	Timezone    string
}

// RemindersConfig holds the initial reminder settings and notifier behaviour
type RemindersConfig struct {
	Enabled          bool
	PermissionPolicy string
	Water            WaterReminderConfig
	Medication       MedicationReminderConfig
	CheckIn          CheckInReminderConfig
}

// WaterReminderConfig holds hydration reminder settings
type WaterReminderConfig struct {
	Enabled       bool
	IntervalHours int
	Start         string
	End           string
}

// MedicationReminderConfig holds medication reminder settings
type MedicationReminderConfig struct {
	Enabled bool
}

// CheckInReminderConfig holds check-in reminder settings
type CheckInReminderConfig struct {
	Enabled bool
	Time    string
	Weekday string // empty for daily
}

// InteractionsConfig points at an optional interaction rule table
type InteractionsConfig struct {
	RulesFile string
}

// TelegramConfig enables delivery of reminders to a Telegram chat
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	Storage AzureStorageConfig
}

// AzureStorageConfig holds Azure Blob Storage configuration for data exports.
// ExportKey is a base64 AES-256 key; stored exports are encrypted when set.
type AzureStorageConfig struct {
	AccountName     string
	AccountKey      string
	ExportContainer string
	ExportKey       string
}

// Load reads configuration from an optional .env file, environment variables
// and defaults
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.openapivalidate", true)

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)
	v.SetDefault("database.migrateonstart", true)

	// Storage defaults
	v.SetDefault("storage.driver", "postgres")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Schedule defaults
	v.SetDefault("schedule.matchwindow", schedule.DefaultMatchWindow)
	v.SetDefault("schedule.missedafter", schedule.DefaultMissedAfter)
	v.SetDefault("schedule.timezone", "Local")

	// Reminder defaults
	defaults := reminder.DefaultSettings()
	v.SetDefault("reminders.enabled", defaults.Enabled)
	v.SetDefault("reminders.permissionpolicy", string(notify.PermissionPrompt))
	v.SetDefault("reminders.water.enabled", defaults.Water.Enabled)
	v.SetDefault("reminders.water.intervalhours", defaults.Water.IntervalHours)
	v.SetDefault("reminders.water.start", defaults.Water.Start.String())
	v.SetDefault("reminders.water.end", defaults.Water.End.String())
	v.SetDefault("reminders.medication.enabled", defaults.Medication.Enabled)
	v.SetDefault("reminders.checkin.enabled", defaults.CheckIn.Enabled)
	v.SetDefault("reminders.checkin.time", defaults.CheckIn.Time.String())
	v.SetDefault("reminders.checkin.weekday", "")

	// Azure Storage defaults
	v.SetDefault("azure.storage.exportcontainer", "regimen-exports")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.openapivalidate", "OPENAPI_VALIDATE")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.migrateonstart", "DATABASE_MIGRATE")

	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")

	// Schedule
	v.BindEnv("schedule.matchwindow", "SCHEDULE_MATCH_WINDOW")
	v.BindEnv("schedule.missedafter", "SCHEDULE_MISSED_AFTER")
	v.BindEnv("schedule.timezone", "TZ_NAME", "SCHEDULE_TIMEZONE")

	// Reminders
	v.BindEnv("reminders.enabled", "REMINDERS_ENABLED")
	v.BindEnv("reminders.permissionpolicy", "NOTIFICATION_PERMISSION")
	v.BindEnv("reminders.water.enabled", "WATER_REMINDERS_ENABLED")
	v.BindEnv("reminders.water.intervalhours", "WATER_REMINDER_INTERVAL_HOURS")
	v.BindEnv("reminders.water.start", "WATER_REMINDER_START")
	v.BindEnv("reminders.water.end", "WATER_REMINDER_END")
	v.BindEnv("reminders.medication.enabled", "MEDICATION_REMINDERS_ENABLED")
	v.BindEnv("reminders.checkin.enabled", "CHECKIN_REMINDER_ENABLED")
	v.BindEnv("reminders.checkin.time", "CHECKIN_REMINDER_TIME")
	v.BindEnv("reminders.checkin.weekday", "CHECKIN_REMINDER_WEEKDAY")

	// Interactions
	v.BindEnv("interactions.rulesfile", "INTERACTION_RULES_FILE")

	// Telegram
	v.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	v.BindEnv("telegram.chatid", "TELEGRAM_CHAT_ID")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.exportcontainer", "AZURE_STORAGE_EXPORT_CONTAINER")
	v.BindEnv("azure.storage.exportkey", "EXPORT_ENCRYPTION_KEY")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres storage driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres or memory, got %q", c.Storage.Driver)
	}

	if c.Schedule.MatchWindow <= 0 || c.Schedule.MissedAfter <= 0 {
		return fmt.Errorf("schedule match window and missed grace must be positive")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if _, err := notify.ParsePermissionPolicy(c.Reminders.PermissionPolicy); err != nil {
		return err
	}

	settings, err := c.ReminderSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid reminder settings: %w", err)
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chatid is required when telegram.token is set")
	}

	if (c.Azure.Storage.AccountName == "") != (c.Azure.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage requires both account name and account key")
	}

	if c.Azure.Storage.ExportKey != "" {
		if _, err := security.ParseKey(c.Azure.Storage.ExportKey); err != nil {
			return fmt.Errorf("invalid azure.storage.exportkey: %w", err)
		}
	}

	return nil
}

// Location resolves the schedule timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", c.Schedule.Timezone, err)
	}
	return loc, nil
}

// SchedulePolicy returns the dose matching policy
func (c *Config) SchedulePolicy() schedule.Policy {
	return schedule.Policy{
		MatchWindow: c.Schedule.MatchWindow,
		MissedAfter: c.Schedule.MissedAfter,
	}
}

// ReminderSettings converts the reminder section into scheduler settings
func (c *Config) ReminderSettings() (reminder.Settings, error) {
	r := c.Reminders
	settings := reminder.Settings{
		Enabled:    r.Enabled,
		Medication: reminder.MedicationSettings{Enabled: r.Medication.Enabled},
	}

	var err error
	settings.Water = reminder.WaterSettings{Enabled: r.Water.Enabled, IntervalHours: r.Water.IntervalHours}
	if settings.Water.Start, err = timeutil.ParseClock(r.Water.Start); err != nil {
		return reminder.Settings{}, fmt.Errorf("invalid reminders.water.start: %w", err)
	}
	if settings.Water.End, err = timeutil.ParseClock(r.Water.End); err != nil {
		return reminder.Settings{}, fmt.Errorf("invalid reminders.water.end: %w", err)
	}

	settings.CheckIn = reminder.CheckInSettings{Enabled: r.CheckIn.Enabled}
	if settings.CheckIn.Time, err = timeutil.ParseClock(r.CheckIn.Time); err != nil {
		return reminder.Settings{}, fmt.Errorf("invalid reminders.checkin.time: %w", err)
	}
	if r.CheckIn.Weekday != "" {
		wd, err := parseWeekday(r.CheckIn.Weekday)
		if err != nil {
			return reminder.Settings{}, err
		}
		settings.CheckIn.Weekday = &wd
	}

	return settings, nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid reminders.checkin.weekday %q", s)
}
