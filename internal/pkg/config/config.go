package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, CRM webhook, etc.), security settings
// - default: Values common across all environments (timezone, timeout, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	CORS       CORSConfig
	Log        LogConfig
	JWT        JWTConfig
	Bitrix24   Bitrix24Config
	Snapshot   SnapshotConfig
	Scheduling SchedulingConfig
	Retry      RetryConfig
	Bulk       BulkConfig
	Ledger     LedgerConfig
	Teams      TeamsConfig
	Plans      PlansConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization,Idempotency-Key"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret   string `envconfig:"JWT_SECRET" required:"true"`
	Duration string `envconfig:"JWT_DURATION" default:"24h"`
}

type Bitrix24Config struct {
	// Inbound webhook base, e.g. https://example.bitrix24.com/rest/1/xxxx/
	WebhookURL       string        `envconfig:"BITRIX24_WEBHOOK_URL" required:"true"`
	ApplicationToken string        `envconfig:"BITRIX24_APPLICATION_TOKEN"`
	Timeout          time.Duration `envconfig:"BITRIX24_TIMEOUT" default:"10s"`
	RateLimit        float64       `envconfig:"BITRIX24_RATE_LIMIT" default:"10"`
	Burst            int           `envconfig:"BITRIX24_BURST" default:"10"`
	CalendarType     string        `envconfig:"BITRIX24_CALENDAR_TYPE" default:"user"`
}

type SnapshotConfig struct {
	MaxAge      time.Duration `envconfig:"SNAPSHOT_MAX_AGE" default:"5m"`
	RefreshSpec string        `envconfig:"SNAPSHOT_REFRESH_SPEC" default:"@every 5m"`
	MaxPerEvent int           `envconfig:"SNAPSHOT_MAX_OCCURRENCES" default:"500"`
}

type SchedulingConfig struct {
	TimeZone        string        `envconfig:"CALENDAR_TIMEZONE" default:"UTC"`
	DayStart        string        `envconfig:"CALENDAR_DAY_START" default:"09:00"`
	DayEnd          string        `envconfig:"CALENDAR_DAY_END" default:"17:00"`
	SlotStep        time.Duration `envconfig:"CALENDAR_SLOT_STEP" default:"30m"`
	SearchDays      int           `envconfig:"CALENDAR_SEARCH_BUSINESS_DAYS" default:"3"`
	MaxAlternatives int           `envconfig:"CALENDAR_MAX_ALTERNATIVES" default:"5"`
	DefaultDuration time.Duration `envconfig:"CALENDAR_DEFAULT_DURATION" default:"60m"`
}

type RetryConfig struct {
	MaxRetries  int           `envconfig:"RETRY_MAX" default:"3"`
	BaseBackoff time.Duration `envconfig:"RETRY_BASE_BACKOFF" default:"500ms"`
	Factor      float64       `envconfig:"RETRY_FACTOR" default:"2"`
	Jitter      float64       `envconfig:"RETRY_JITTER" default:"0.2"`
	CallTimeout time.Duration `envconfig:"CRM_CALL_TIMEOUT" default:"10s"`
}

type BulkConfig struct {
	MaxConcurrency int `envconfig:"BULK_MAX_CONCURRENCY" default:"8"`
}

type LedgerConfig struct {
	// memory | sqlite | postgres
	Driver    string        `envconfig:"LEDGER_DRIVER" default:"sqlite"`
	SQLiteDSN string        `envconfig:"LEDGER_SQLITE_DSN" default:"file:ledger.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
	TTL       time.Duration `envconfig:"LEDGER_TTL" default:"24h"`
}

type TeamsConfig struct {
	File string `envconfig:"TEAMS_FILE"`
}

type PlansConfig struct {
	TTL time.Duration `envconfig:"PLAN_TTL" default:"1h"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func (c SchedulingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid CALENDAR_TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DayBounds returns the working-day start and end as offsets from midnight.
func (c SchedulingConfig) DayBounds() (time.Duration, time.Duration, error) {
	start, err := parseClock(c.DayStart)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid CALENDAR_DAY_START: %w", err)
	}
	end, err := parseClock(c.DayEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid CALENDAR_DAY_END: %w", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("CALENDAR_DAY_END %s must be after CALENDAR_DAY_START %s", c.DayEnd, c.DayStart)
	}
	return start, end, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: "1h",
		},
		Bitrix24: Bitrix24Config{
			WebhookURL:       "http://localhost:18080/rest/1/test/",
			ApplicationToken: "test-app-token",
			Timeout:          2 * time.Second,
			RateLimit:        100,
			Burst:            100,
			CalendarType:     "user",
		},
		Snapshot: SnapshotConfig{
			MaxAge:      5 * time.Minute,
			RefreshSpec: "@every 5m",
			MaxPerEvent: 500,
		},
		Scheduling: SchedulingConfig{
			TimeZone:        "UTC",
			DayStart:        "09:00",
			DayEnd:          "17:00",
			SlotStep:        30 * time.Minute,
			SearchDays:      3,
			MaxAlternatives: 5,
			DefaultDuration: time.Hour,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseBackoff: time.Millisecond, // keep tests fast
			Factor:      2,
			Jitter:      0.2,
			CallTimeout: 2 * time.Second,
		},
		Bulk:   BulkConfig{MaxConcurrency: 8},
		Ledger: LedgerConfig{Driver: "memory", TTL: 24 * time.Hour},
		Plans:  PlansConfig{TTL: time.Hour},
	}
}
