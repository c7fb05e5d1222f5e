package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	StorageDriver  string // STORAGE_DRIVER: mysql (default) or memory
	DBUser         string // DB_USER, required for mysql
	DBPass         string // DB_PASS, may be empty
	DBHost         string // DB_HOST, required for mysql
	DBPort         string // DB_PORT, required for mysql
	DBName         string // DB_NAME, required for mysql
	DBAutoMigrate  bool   // DB_AUTO_MIGRATE creates missing tables at startup
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST
	RabbitURL      string // RABBITMQ_URL (or AMQP_URL); empty disables notifications
	BookingLogPath string // BOOKING_LOG_PATH written by the notification consumer
	LogLevel       string // LOG_LEVEL (debug, info, warn, error)
	LogFormat      string // LOG_FORMAT (text or json)
	AdminName      string // ADMIN_NAME of the seeded admin
	AdminEmail     string // ADMIN_EMAIL; seeding is skipped when empty
	AdminPassword  string // ADMIN_PASSWORD
}

// Load reads configuration from the environment. Missing required
// variables stop the program with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		StorageDriver:  strings.ToLower(getenv("STORAGE_DRIVER", DriverMySQL)),
		DBPass:         os.Getenv("DB_PASS"),
		DBAutoMigrate:  envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		RabbitURL:      getenv("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		BookingLogPath: getenv("BOOKING_LOG_PATH", "logs/booking.log"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		AdminName:      getenv("ADMIN_NAME", "Administrator"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}
	switch cfg.StorageDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMemory:
	default:
		log.Fatalf("unknown STORAGE_DRIVER %q (want mysql or memory)", cfg.StorageDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
