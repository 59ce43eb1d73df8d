package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

// ServerConfig captures all tunable parameters for the booking service.
// Values come from the environment, optionally seeded from a .env file, with
// defaults that let the binary run locally on the in-memory store.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreBackend          string
	SheetsCredentialsFile string
	SheetsBookingsID      string
	SheetsUsersID         string
	PGDSN                 string
	RunMigrations         bool
	RedisAddr             string
	RedisPassword         string

	RoutingProvider string
	ORSAPIKey       string
	ORSEndpoint     string
	OSRMEndpoint    string
	IPInfoEndpoint  string
	RouteTimeout    time.Duration
	GeocodeTimeout  time.Duration
	RouteCacheTTL   time.Duration
	SuggestDebounce time.Duration

	CancelWindow time.Duration
	JWTSecret    string
	SessionTTL   time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	StripeAPIKey     string
	FareCurrency     string
	DriverWebhookURL string

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		StoreBackend:    "memory",
		RoutingProvider: "ors",
		ORSEndpoint:     "https://api.openrouteservice.org",
		OSRMEndpoint:    "https://router.project-osrm.org",
		IPInfoEndpoint:  "https://ipinfo.io/json",
		RouteTimeout:    10 * time.Second,
		GeocodeTimeout:  5 * time.Second,
		RouteCacheTTL:   5 * time.Minute,
		SuggestDebounce: 400 * time.Millisecond,
		CancelWindow:    120 * time.Second,
		SessionTTL:      12 * time.Hour,
		KafkaTopic:      "booking-events",
		FareCurrency:    "php",
		LogLevel:        "info",
	}
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := gotenv.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.StoreBackend = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(&cfg.SheetsCredentialsFile, "SHEETS_CREDENTIALS_FILE")
	setStringFromEnv(&cfg.SheetsBookingsID, "SHEETS_BOOKINGS_ID")
	setStringFromEnv(&cfg.SheetsUsersID, "SHEETS_USERS_ID")
	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if v := os.Getenv("ROUTING_PROVIDER"); v != "" {
		cfg.RoutingProvider = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.ORSAPIKey = os.Getenv("ORS_API_KEY")
	setStringFromEnv(&cfg.ORSEndpoint, "ORS_ENDPOINT")
	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setStringFromEnv(&cfg.IPInfoEndpoint, "IPINFO_ENDPOINT")
	setDurationFromEnv(&cfg.RouteTimeout, "ROUTE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.GeocodeTimeout, "GEOCODE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.RouteCacheTTL, "ROUTE_CACHE_TTL", &errs)
	setDurationFromEnv(&cfg.SuggestDebounce, "SUGGEST_DEBOUNCE", &errs)

	setDurationFromEnv(&cfg.CancelWindow, "CANCEL_WINDOW", &errs)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	setDurationFromEnv(&cfg.SessionTTL, "SESSION_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")
	if v := os.Getenv("FARE_CURRENCY"); v != "" {
		cfg.FareCurrency = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(&cfg.DriverWebhookURL, "DRIVER_WEBHOOK_URL")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	errs = append(errs, cfg.validate()...)
	return cfg, errors.Join(errs...)
}

func (cfg ServerConfig) validate() []error {
	var errs []error
	switch cfg.StoreBackend {
	case "memory":
	case "sheets":
		if cfg.SheetsCredentialsFile == "" || cfg.SheetsBookingsID == "" || cfg.SheetsUsersID == "" {
			errs = append(errs, fmt.Errorf("STORE_BACKEND=sheets needs SHEETS_CREDENTIALS_FILE, SHEETS_BOOKINGS_ID and SHEETS_USERS_ID"))
		}
	case "postgres":
		if cfg.PGDSN == "" {
			errs = append(errs, fmt.Errorf("STORE_BACKEND=postgres needs PG_DSN"))
		}
	case "redis":
		if cfg.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("STORE_BACKEND=redis needs REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend))
	}
	switch cfg.RoutingProvider {
	case "ors":
		if cfg.ORSAPIKey == "" {
			errs = append(errs, fmt.Errorf("ROUTING_PROVIDER=ors needs ORS_API_KEY"))
		}
	case "osrm":
	default:
		errs = append(errs, fmt.Errorf("unknown ROUTING_PROVIDER %q", cfg.RoutingProvider))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	}
	if cfg.CancelWindow <= 0 {
		errs = append(errs, fmt.Errorf("CANCEL_WINDOW must be > 0"))
	}
	return errs
}

// StoreConfig is the subset of settings the CLI needs to reach the stores.
type StoreConfig struct {
	Backend               string
	SheetsCredentialsFile string
	SheetsBookingsID      string
	PGDSN                 string
	RedisAddr             string
	RedisPassword         string
}

func LoadStoreConfig() StoreConfig {
	cfg := StoreConfig{Backend: "memory"}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.SheetsCredentialsFile = os.Getenv("SHEETS_CREDENTIALS_FILE")
	cfg.SheetsBookingsID = os.Getenv("SHEETS_BOOKINGS_ID")
	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	return cfg
}

// ConsumerConfig configures the booking-event projector.
type ConsumerConfig struct {
	MetricsAddr   string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroup    string
	RedisAddr     string
	RedisPassword string
	RedisRetries  int
	LogLevel      string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		MetricsAddr:  ":2112",
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "booking-events",
		KafkaGroup:   "ride-booking-projector",
		RedisAddr:    "localhost:6379",
		RedisRetries: 3,
		LogLevel:     "info",
	}
	var errs []error
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setIntFromEnv(&cfg.RedisRetries, "REDIS_RETRIES", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if cfg.RedisRetries <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_RETRIES must be > 0"))
	}
	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
