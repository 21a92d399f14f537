// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func loadConfig(t *testing.T, args ...string) *Config {
	t.Helper()

	var cfg *Config
	cmd := &cli.Command{
		Flags: Flags(),
		Action: func(_ context.Context, c *cli.Command) error {
			cfg = NewFromCLI(c)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"app"}, args...)))
	require.NotNil(t, cfg)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := loadConfig(t)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)

	assert.Equal(t, "_session", cfg.Session.AuthCookieName)
	assert.Equal(t, "_verification", cfg.Session.PendingCookieName)
	assert.Equal(t, 60*60*24*180, cfg.Session.AuthMaxAge)
	assert.Equal(t, 60*60, cfg.Session.PendingMaxAge)

	assert.Equal(t, 5*time.Minute, cfg.Auth.VerificationTTL)
	assert.Equal(t, int64(3), cfg.Auth.AttemptLimit)
	assert.Equal(t, 180*24*time.Hour, cfg.Auth.SessionTTL)
	assert.False(t, cfg.Auth.OTPRequired)
}

func TestSessionSecretsFromFlag(t *testing.T) {
	cfg := loadConfig(t, "--session-secrets", "new-secret, old-secret")
	assert.Equal(t, []string{"new-secret", "old-secret"}, cfg.Session.Secrets)
}

func TestSplitSecrets(t *testing.T) {
	assert.Nil(t, splitSecrets(""))
	assert.Equal(t, []string{"a"}, splitSecrets("a"))
	assert.Equal(t, []string{"a", "b"}, splitSecrets("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitSecrets(" a , b , "))
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, IsLocalhost(""))
	assert.True(t, IsLocalhost("localhost"))
	assert.True(t, IsLocalhost("127.0.0.1"))
	assert.True(t, IsLocalhost("::1"))
	assert.True(t, IsLocalhost("app.localhost"))
	assert.False(t, IsLocalhost("example.com"))
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "localhost defaults to http",
			cfg:  Config{Server: ServerConfig{Host: "localhost", Port: 8080}, TLS: TLSConfig{Mode: "auto"}},
			want: "http://localhost:8080",
		},
		{
			name: "public host defaults to https",
			cfg:  Config{Server: ServerConfig{Host: "example.com", Port: 8443}, TLS: TLSConfig{Mode: "auto"}},
			want: "https://example.com:8443",
		},
		{
			name: "acme always uses 443",
			cfg:  Config{Server: ServerConfig{Host: "example.com", Port: 8080}, TLS: TLSConfig{Mode: "acme"}},
			want: "https://example.com",
		},
		{
			name: "default port is hidden",
			cfg:  Config{Server: ServerConfig{Host: "example.com", Port: 443}, TLS: TLSConfig{Mode: "manual"}},
			want: "https://example.com",
		},
		{
			name: "explicit off stays http",
			cfg:  Config{Server: ServerConfig{Host: "example.com", Port: 8080}, TLS: TLSConfig{Mode: "off"}},
			want: "http://example.com:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildBaseURL(&tt.cfg))
		})
	}
}
