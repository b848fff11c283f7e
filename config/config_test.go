package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REPOSITORY_DRIVER", "")
	t.Setenv("PORT", "")
	t.Setenv("USER_CACHE_TTL", "")
	t.Setenv("MAX_PAGE_SIZE", "")

	cfg := Load()
	assert.Equal(t, DriverPostgres, cfg.RepositoryDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.UserCacheTTL)
	assert.Equal(t, 100, cfg.MaxPageSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REPOSITORY_DRIVER", "Memory")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("MAIL_SEND_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, DriverMemory, cfg.RepositoryDriver)
	assert.EqualValues(t, 25, cfg.DBMaxConns)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.False(t, cfg.MailSendEnabled)
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	t.Setenv("USER_CACHE_TTL", "soon")
	t.Setenv("HTTP_LOG_ENABLED", "maybe")

	cfg := Load()
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 5*time.Minute, cfg.UserCacheTTL)
	assert.False(t, cfg.HTTPLogEnabled)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "users", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/users?sslmode=disable", cfg.PostgresDSN())
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	cfg := &Config{DBUser: "app@svc", DBPassword: "p@ss/w:rd?#", DBHost: "db", DBPort: "5432", DBName: "users", DBSSLMode: "require"}

	parsed, err := url.Parse(cfg.PostgresDSN())
	require.NoError(t, err)
	assert.Equal(t, "app@svc", parsed.User.Username())
	pass, ok := parsed.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/w:rd?#", pass)
	assert.Equal(t, "db:5432", parsed.Host)
	assert.Equal(t, "/users", parsed.Path)
	assert.Equal(t, "require", parsed.Query().Get("sslmode"))
}

func TestOptionalServicesDefaultOff(t *testing.T) {
	for _, k := range []string{"ELASTICSEARCH_ADDRS", "RATE_LIMIT_BYPASS_PRIVATE", "TRUSTED_PROXIES", "BEHIND_CLOUDFLARE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Empty(t, cfg.ESAddrs())
	assert.False(t, cfg.RateLimitBypassLocal)
	assert.Empty(t, cfg.TrustedProxyList())
	assert.False(t, cfg.BehindCloudflare)
}

func TestListSplitting(t *testing.T) {
	cfg := &Config{
		CORSAllowedOrigins: " https://a.example , ,https://b.example",
		ElasticsearchAddrs: "",
	}
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
	require.Empty(t, cfg.ESAddrs())
}
