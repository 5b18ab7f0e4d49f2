package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Google    GoogleConfig
	JWT       JWTConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GoogleConfig configures Google ID-token verification. ClientID is the
// expected audience.
type GoogleConfig struct {
	ClientID      string
	Issuer        string
	AllowInsecure bool
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// AuthConfig holds the sign-up policy and the optional bootstrap admin.
type AuthConfig struct {
	EmailDomain   string
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("MONGODB_DATABASE", "clubsite")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GOOGLE_ISSUER", "https://accounts.google.com")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("JWT_ISSUER", "clubsite")
	v.SetDefault("AUTH_EMAIL_DOMAIN", "@gachon.ac.kr")
	v.SetDefault("ADMIN_NAME", "admin")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "clubsite")

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Host:           v.GetString("SERVER_HOST"),
			Environment:    v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Google: GoogleConfig{
			ClientID:      v.GetString("GOOGLE_CLIENT_ID"),
			Issuer:        v.GetString("GOOGLE_ISSUER"),
			AllowInsecure: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET_KEY"),
			TTL:    time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Auth: AuthConfig{
			EmailDomain:   normalizeDomain(v.GetString("AUTH_EMAIL_DOMAIN")),
			AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
			AdminName:     v.GetString("ADMIN_NAME"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET_KEY is not set; using an insecure development secret")
		cfg.JWT.Secret = "dev-insecure-secret"
	}
	return cfg, nil
}

// normalizeDomain lower-cases the sign-up domain and adds the leading "@",
// so "gachon.ac.kr" cannot match "x@evilgachon.ac.kr".
func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	if d != "" && !strings.HasPrefix(d, "@") {
		d = "@" + d
	}
	return d
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET_KEY is required in %s", c.Server.Environment)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	if len(c.Auth.EmailDomain) < 2 || !strings.HasPrefix(c.Auth.EmailDomain, "@") || strings.Count(c.Auth.EmailDomain, "@") != 1 {
		return fmt.Errorf("AUTH_EMAIL_DOMAIN must look like @example.ac.kr, got %q", c.Auth.EmailDomain)
	}
	if c.Google.AllowInsecure && !c.IsDevelopment() {
		return fmt.Errorf("ALLOW_INSECURE_TOKEN is only permitted in development")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// IsDevelopment reports whether the server runs in a development environment.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev" || env == "test"
}

// RedisAddr returns host:port or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
