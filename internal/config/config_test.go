package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "clubsite_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("JWT_SECRET_KEY", "testsecret123456789012345678901234")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("GOOGLE_CLIENT_ID", "cid.apps.googleusercontent.com")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:5173, https://club.example.com ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	require.Equal(t, "clubsite_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.RedisAddr())
	require.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	require.Equal(t, "@gachon.ac.kr", cfg.Auth.EmailDomain)
	require.Equal(t, "https://accounts.google.com", cfg.Google.Issuer)
	require.Equal(t, []string{"http://localhost:5173", "https://club.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_DevSecretFallback(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("SERVER_ENVIRONMENT", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoadConfig_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("SERVER_ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate_AdminCredentialsTogether(t *testing.T) {
	cfg := &Config{}
	cfg.JWT.Secret = "s"
	cfg.JWT.TTL = time.Hour
	cfg.Auth.EmailDomain = "@gachon.ac.kr"
	cfg.Auth.AdminEmail = "root@gachon.ac.kr"
	require.Error(t, cfg.Validate())

	cfg.Auth.AdminPassword = "pw"
	require.NoError(t, cfg.Validate())
}

func TestValidate_InsecureVerifierOnlyInDevelopment(t *testing.T) {
	cfg := &Config{}
	cfg.JWT.Secret = "s"
	cfg.JWT.TTL = time.Hour
	cfg.Auth.EmailDomain = "@gachon.ac.kr"
	cfg.Google.AllowInsecure = true
	cfg.Server.Environment = "production"
	require.Error(t, cfg.Validate())

	cfg.Server.Environment = "development"
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EmailDomainGetsAtSign(t *testing.T) {
	t.Setenv("SERVER_ENVIRONMENT", "development")
	t.Setenv("AUTH_EMAIL_DOMAIN", " Gachon.AC.kr ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "@gachon.ac.kr", cfg.Auth.EmailDomain)
}

func TestValidate_EmailDomain(t *testing.T) {
	base := func(domain string) *Config {
		c := &Config{}
		c.Server.Environment = "development"
		c.JWT.TTL = time.Hour
		c.Auth.EmailDomain = domain
		return c
	}
	require.NoError(t, base("@gachon.ac.kr").Validate())
	for _, bad := range []string{"", "@", "gachon.ac.kr", "a@gachon.ac.kr"} {
		require.Error(t, base(bad).Validate(), bad)
	}
}
