package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/service-desk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Sweep        SweepConfig
	Classifier   ClassifierConfig
	Conversation ConversationConfig
	Catalog      CatalogConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig controls notification delivery.
type NotificationConfig struct {
	WebhookURL            string
	OutboundWebhookURL    string
	RedisChannel          string
	WebhookTimeoutSeconds int
	Workers               int
	QueueSize             int
}

// SLAConfig holds the built-in fallback minutes per priority.
type SLAConfig struct {
	Fallback map[domain.TicketPriority]FallbackMinutes
}

// FallbackMinutes is one row of the fallback table.
type FallbackMinutes struct {
	Response   int
	Resolution int
}

// SweepConfig controls the periodic breach sweep.
type SweepConfig struct {
	Enabled         bool
	IntervalSeconds int
	TimeoutSeconds  int
	BatchSize       int
	LockKey         string
}

// ClassifierConfig tunes keyword classification routing.
type ClassifierConfig struct {
	MinConfidence float64
}

// ConversationConfig drives the conversation tracker.
type ConversationConfig struct {
	MenuKeywords      []string
	CancelKeywords    []string
	DeclineKeywords   []string
	FeedbackQuestions []string
	FeedbackInvite    string
	StateTTLHours     int
}

// CatalogConfig controls configuration snapshot refreshes.
type CatalogConfig struct {
	RefreshIntervalSeconds int
	Channel                string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "service-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			OutboundWebhookURL:    getEnv("OUTBOUND_WEBHOOK_URL", ""),
			RedisChannel:          getEnv("NOTIFY_REDIS_CHANNEL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
			Workers:               getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize:             getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		},
		SLA: SLAConfig{
			Fallback: loadFallbackTable(),
		},
		Sweep: SweepConfig{
			Enabled:         getEnvAsBool("SWEEP_ENABLED", true),
			IntervalSeconds: getEnvAsInt("SWEEP_INTERVAL_SECONDS", 30),
			TimeoutSeconds:  getEnvAsInt("SWEEP_TIMEOUT_SECONDS", 20),
			BatchSize:       getEnvAsInt("SWEEP_BATCH_SIZE", 200),
			LockKey:         getEnv("SWEEP_LOCK_KEY", "service-desk:breach-sweep"),
		},
		Classifier: ClassifierConfig{
			MinConfidence: getEnvAsFloat("MIN_CLASSIFICATION_CONFIDENCE", 0),
		},
		Conversation: ConversationConfig{
			MenuKeywords:      getEnvAsList("CONVERSATION_MENU_KEYWORDS", []string{"menu", "hi", "hello", "help", "start"}),
			CancelKeywords:    getEnvAsList("CONVERSATION_CANCEL_KEYWORDS", []string{"cancel"}),
			DeclineKeywords:   getEnvAsList("CONVERSATION_DECLINE_KEYWORDS", []string{"no", "later", "stop"}),
			FeedbackQuestions: getEnvAsListSep("FEEDBACK_QUESTIONS", "|", defaultFeedbackQuestions),
			FeedbackInvite:    getEnv("FEEDBACK_INVITE", "Thank you for staying with us! Would you share a few words about your stay? Reply with anything to start, or NO to skip."),
			StateTTLHours:     getEnvAsInt("CONVERSATION_STATE_TTL_HOURS", 0),
		},
		Catalog: CatalogConfig{
			RefreshIntervalSeconds: getEnvAsInt("CATALOG_REFRESH_INTERVAL_SECONDS", 60),
			Channel:                getEnv("CATALOG_CHANNEL", "service-desk:catalog"),
		},
	}

	return cfg, nil
}

var defaultFeedbackQuestions = []string{
	"How would you rate your stay from 1 to 5?",
	"How was the cleanliness of your room?",
	"Is there anything we could have done better?",
}

// DefaultFallback is the built-in SLA table used when no policy row exists.
func DefaultFallback() map[domain.TicketPriority]FallbackMinutes {
	return map[domain.TicketPriority]FallbackMinutes{
		domain.TicketPriorityCritical: {Response: 5, Resolution: 5},
		domain.TicketPriorityHigh:     {Response: 10, Resolution: 10},
		domain.TicketPriorityNormal:   {Response: 15, Resolution: 15},
		domain.TicketPriorityLow:      {Response: 20, Resolution: 20},
	}
}

func loadFallbackTable() map[domain.TicketPriority]FallbackMinutes {
	table := DefaultFallback()
	for priority, row := range table {
		prefix := "SLA_FALLBACK_" + string(priority)
		row.Response = getEnvAsInt(prefix+"_RESPONSE_MINUTES", row.Response)
		row.Resolution = getEnvAsInt(prefix+"_RESOLUTION_MINUTES", row.Resolution)
		table[priority] = row
	}
	return table
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Interval returns the sweep period.
func (s SweepConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Timeout bounds a single sweep run.
func (s SweepConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return s.Interval()
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StateTTL bounds how long idle conversation state is kept in Redis.
// Zero means state never expires.
func (c ConversationConfig) StateTTL() time.Duration {
	if c.StateTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.StateTTLHours) * time.Hour
}

// RefreshInterval returns the snapshot reload period.
func (c CatalogConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	return getEnvAsListSep(key, ",", fallback)
}

func getEnvAsListSep(key, sep string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
