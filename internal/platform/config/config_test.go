package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leave")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("RUN_SEED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("ESCALATION_EXHAUSTED_POLICY", "hold")
	t.Setenv("LEAVE_NOTICE_DAYS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "postgres://localhost/leave", cfg.DatabaseURL)
	assert.Equal(t, 4, cfg.DBMaxConns)
	assert.False(t, cfg.RunSeed)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "hold", cfg.EscalationExhaustedPolicy)
	assert.Equal(t, 7, cfg.LeaveNoticeDays, "unparsable values fall back to the default")
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL:               "postgres://localhost/leave",
			MaxBodyBytes:              1 << 20,
			DBMaxConns:                10,
			EscalationDefaultHours:    24,
			EscalationExhaustedPolicy: "escalate_to_hr",
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing database":   func(c *Config) { c.DatabaseURL = "" },
		"prod without jwt":   func(c *Config) { c.Environment = "production" },
		"tiny body limit":    func(c *Config) { c.MaxBodyBytes = 10 },
		"zero conns":         func(c *Config) { c.DBMaxConns = 0 },
		"zero escalation":    func(c *Config) { c.EscalationDefaultHours = 0 },
		"unknown policy":     func(c *Config) { c.EscalationExhaustedPolicy = "ignore" },
		"reject needs level": func(c *Config) { c.EscalationExhaustedPolicy = "reject" },
		"negative notice":    func(c *Config) { c.LeaveNoticeDays = -1 },
		"email without smtp": func(c *Config) { c.EmailEnabled = true },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestReadinessTimeout(t *testing.T) {
	assert.Equal(t, 2*time.Second, ReadinessTimeout())
	t.Setenv("READINESS_TIMEOUT", "500ms")
	assert.Equal(t, 500*time.Millisecond, ReadinessTimeout())
}
