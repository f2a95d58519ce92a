package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Identity IdentityConfig
	Oracle   OracleConfig
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// IdentityConfig is the immutable lookup table driving email
// classification: the reserved admin address, the department-head
// address map, the student domain suffix, and the reserved local-part
// tokens students may not use. Addresses are stored lowercase.
type IdentityConfig struct {
	AdminAddress    string
	DepartmentHeads map[string]domain.Department
	StudentDomain   string
	ReservedTokens  []string
}

// OracleConfig points at the external suggestion engine.
type OracleConfig struct {
	Endpoint        string
	APIKey          string
	Model           string
	TimeoutSeconds  int
	CacheTTLMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "campus-helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*24),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Identity: IdentityFor(getEnv("IDENTITY_EMAIL_DOMAIN", "mespune.in")),
		Oracle: OracleConfig{
			Endpoint:        getEnv("ORACLE_ENDPOINT", "https://api.groq.com/openai/v1/chat/completions"),
			APIKey:          os.Getenv("ORACLE_API_KEY"),
			Model:           getEnv("ORACLE_MODEL", "llama-3.1-8b-instant"),
			TimeoutSeconds:  getEnvAsInt("ORACLE_TIMEOUT_SECONDS", 8),
			CacheTTLMinutes: getEnvAsInt("ORACLE_CACHE_TTL_MINUTES", 60),
		},
	}

	return cfg, nil
}

// IdentityFor builds the classification tables for an institutional
// email domain: admin@<domain> is the reserved admin address and each
// department head is <unit>@<domain>.
func IdentityFor(emailDomain string) IdentityConfig {
	emailDomain = strings.ToLower(strings.TrimSpace(emailDomain))
	heads := make(map[string]domain.Department, len(domain.Departments()))
	tokens := []string{"admin@", "admin.", "_admin", "dept@", "department@"}
	for _, dept := range domain.Departments() {
		local := strings.ToLower(string(dept))
		heads[local+"@"+emailDomain] = dept
		tokens = append(tokens, local+"@", local+".", "_"+local)
	}
	return IdentityConfig{
		AdminAddress:    "admin@" + emailDomain,
		DepartmentHeads: heads,
		StudentDomain:   "@" + emailDomain,
		ReservedTokens:  tokens,
	}
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

// Timeout returns the oracle call deadline.
func (o OracleConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached suggestions stay valid.
func (o OracleConfig) CacheTTL() time.Duration {
	if o.CacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(o.CacheTTLMinutes) * time.Minute
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
