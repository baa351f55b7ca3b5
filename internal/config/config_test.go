package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("OSU_CLIENT_ID", "1234")
	t.Setenv("OSU_CLIENT_SECRET", "client-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.0, cfg.Round.DefaultVotingThreshold)
	assert.Equal(t, 5*time.Second, cfg.Refresh.RateInterval)
	assert.Empty(t, cfg.Redis.Addrs)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("OSU_CLIENT_ID", "1234")
	t.Setenv("OSU_CLIENT_SECRET", "client-secret")
	t.Setenv("ROUND_DEFAULT_VOTING_THRESHOLD", "0.85")
	t.Setenv("REDIS_ADDRS", "cache-a:6379, cache-b:6379")
	t.Setenv("REFRESH_RATE_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.85, cfg.Round.DefaultVotingThreshold, 1e-9)
	assert.Equal(t, []string{"cache-a:6379", "cache-b:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 250*time.Millisecond, cfg.Refresh.RateInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: true},
		{name: "missing osu client id", mutate: func(c *Config) { c.Osu.ClientID = "" }, wantErr: true},
		{name: "secret from vault", mutate: func(c *Config) {
			c.Osu.ClientSecret = ""
			c.Vault.Enabled = true
		}},
		{name: "missing osu secret", mutate: func(c *Config) { c.Osu.ClientSecret = "" }, wantErr: true},
		{name: "threshold out of range", mutate: func(c *Config) { c.Round.DefaultVotingThreshold = 1.5 }, wantErr: true},
		{name: "zero refresh interval", mutate: func(c *Config) { c.Refresh.RateInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				JWT:     JWTConfig{Secret: "secret"},
				Osu:     OsuConfig{ClientID: "1", ClientSecret: "s"},
				Refresh: RefreshConfig{RateInterval: time.Second},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
