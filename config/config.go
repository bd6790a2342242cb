// Package config provides configuration management for the natours API.
// All settings are read from environment variables once at startup and
// handed to components as an explicit AppConfig struct; nothing looks up
// the environment at request time. Loading collects every problem it finds
// and reports them together, so a misconfigured deployment fails fast with
// one complete message.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment modes. Development enables verbose error responses; production
// hides internals and enables the secure cookie flag.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DBConfig holds settings for the PostgreSQL connection pool.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret        string        // secret key for signing session tokens
	JWTExpiresIn     time.Duration // lifetime of issued session tokens
	CookieExpiresIn  time.Duration // lifetime of the jwt cookie
	BcryptCost       int           // bcrypt cost factor for password hashing
	ResetTokenExpiry time.Duration // lifetime of password reset tokens
}

// SMTPConfig holds settings for the outbound mail client.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig bounds request volume per client IP.
type RateLimitConfig struct {
	MaxRequests int           // requests allowed per window
	Window      time.Duration // sliding window size
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string // port is a string because it is used directly in the listen address
	Env  string // EnvDevelopment or EnvProduction
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB        *DBConfig
	Auth      *AuthConfig
	SMTP      *SMTPConfig
	RateLimit *RateLimitConfig
	Server    *ServerConfig
}

// IsProduction reports whether the app runs in production mode.
func (c *AppConfig) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// getRequiredEnv reads a variable that must be present, collecting an error
// into errs if it is missing.
func getRequiredEnv(key string, errs *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errs = append(*errs, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads a variable with a default.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads an integer variable with a default. A value that
// does not parse is reported and the default is used.
func getOptionalEnvInt(key string, defaultValue int, errs *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration reads a duration variable ("15m", "90d" is not valid
// Go syntax, use "2160h") with a default.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the connection pool size within sane bounds.
func clampPoolSize(size int, varName string, errs *[]string) int {
	if size < 2 {
		*errs = append(*errs, fmt.Sprintf("pool size for %s (%d) is less than minimum 2, clamping to 2", varName, size))
		return 2
	}
	if size > 100 {
		*errs = append(*errs, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		return 100
	}
	return size
}

// LoadConfig builds the AppConfig from the environment. It returns a single
// aggregated error listing every missing or malformed variable.
func LoadConfig() (*AppConfig, error) {
	var errs []string

	// Database
	dbUser := getRequiredEnv("DB_USER", &errs)
	dbPassword := getRequiredEnv("DB_PASSWORD", &errs)
	dbName := getRequiredEnv("DB_NAME", &errs)
	dbHost := getOptionalEnv("DB_HOST", "localhost")
	dbPort := getOptionalEnvInt("DB_PORT", 5432, &errs)
	poolSize := clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errs), "DB_POOL_SIZE", &errs)

	dbConfig := &DBConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
		MaxSize:  poolSize,
	}

	// Auth
	jwtSecret := getRequiredEnv("JWT_SECRET", &errs)
	if jwtSecret != "" && len(jwtSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}
	jwtExpiresIn := getOptionalEnvDuration("JWT_EXPIRES_IN", 90*24*time.Hour, &errs)
	cookieExpiresDays := getOptionalEnvInt("JWT_COOKIE_EXPIRES_IN_DAYS", 90, &errs)
	bcryptCost := getOptionalEnvInt("BCRYPT_COST", 12, &errs)
	if bcryptCost < 10 || bcryptCost > 16 {
		errs = append(errs, fmt.Sprintf("BCRYPT_COST (%d) must be between 10 and 16", bcryptCost))
	}

	authConfig := &AuthConfig{
		JWTSecret:        jwtSecret,
		JWTExpiresIn:     jwtExpiresIn,
		CookieExpiresIn:  time.Duration(cookieExpiresDays) * 24 * time.Hour,
		BcryptCost:       bcryptCost,
		ResetTokenExpiry: getOptionalEnvDuration("RESET_TOKEN_EXPIRES_IN", 10*time.Minute, &errs),
	}

	// SMTP
	smtpConfig := &SMTPConfig{
		Host:     getRequiredEnv("SMTP_HOST", &errs),
		Port:     getOptionalEnvInt("SMTP_PORT", 587, &errs),
		Username: getOptionalEnv("SMTP_USERNAME", ""),
		Password: getOptionalEnv("SMTP_PASSWORD", ""),
		From:     getOptionalEnv("EMAIL_FROM", "Natours <admin@natours.io>"),
	}

	// Rate limiting: 100 requests per hour per client IP by default.
	rateLimitConfig := &RateLimitConfig{
		MaxRequests: getOptionalEnvInt("RATE_LIMIT_MAX", 100, &errs),
		Window:      getOptionalEnvDuration("RATE_LIMIT_WINDOW", time.Hour, &errs),
	}

	// Server
	env := getOptionalEnv("APP_ENV", EnvDevelopment)
	if env != EnvDevelopment && env != EnvProduction {
		errs = append(errs, fmt.Sprintf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, env))
	}
	serverConfig := &ServerConfig{
		Port: getOptionalEnv("PORT", "8080"),
		Env:  env,
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return &AppConfig{
		DB:        dbConfig,
		Auth:      authConfig,
		SMTP:      smtpConfig,
		RateLimit: rateLimitConfig,
		Server:    serverConfig,
	}, nil
}
