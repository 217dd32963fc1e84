package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is read once at process start and passed by value afterwards.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	DBDriver string `envconfig:"DB_DRIVER" default:"postgres"`
	DBURL    string `envconfig:"DB_URL"`

	JWTSecret      string `envconfig:"JWT_SECRET"`
	JWTExpiryHours int    `envconfig:"JWT_EXPIRY_HOURS" default:"24"`

	// Reminders
	ReminderLeadTime    time.Duration `envconfig:"REMINDER_LEAD_TIME" default:"30m"`
	MaxPendingReminders int           `envconfig:"MAX_PENDING_REMINDERS" default:"10000"`
	DispatchConcurrency int           `envconfig:"DISPATCH_CONCURRENCY" default:"4"`
	DispatchTimeout     time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"15s"`

	// Twilio
	TwilioAccountSID     string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber    string `envconfig:"TWILIO_PHONE_NUMBER"`
	TwilioWhatsAppNumber string `envconfig:"TWILIO_WHATSAPP_NUMBER"`
	NotifyTo             string `envconfig:"NOTIFY_TO"`

	// Events
	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"shiftbook.events"`

	// Maintenance
	ReminderLogRetentionDays int    `envconfig:"REMINDER_LOG_RETENTION_DAYS" default:"30"`
	MaintenanceSchedule      string `envconfig:"MAINTENANCE_SCHEDULE" default:"0 3 * * *"`

	AllowedOrigins       []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	SlowRequestThreshold time.Duration `envconfig:"SLOW_REQUEST_THRESHOLD" default:"200ms"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ReminderLeadTime <= 0 {
		return errors.New("REMINDER_LEAD_TIME must be positive")
	}
	if c.DispatchConcurrency < 1 {
		return errors.New("DISPATCH_CONCURRENCY must be >= 1")
	}
	if c.MaxPendingReminders < 1 {
		return errors.New("MAX_PENDING_REMINDERS must be >= 1")
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBURL == "" {
		return errors.New("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// TwilioEnabled reports whether outbound messages can go through Twilio.
func (c Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.NotifyTo != ""
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

func (c Config) ReminderLogRetention() time.Duration {
	return time.Duration(c.ReminderLogRetentionDays) * 24 * time.Hour
}
