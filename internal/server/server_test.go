// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"log/slog"
	"testing"

	"codeberg.org/verimail/webapp-starter/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestCookieName(t *testing.T) {
	assert.Equal(t, "_session", cookieName("_session", false))
	assert.Equal(t, "__Host-session", cookieName("_session", true))
	assert.Equal(t, "__Host-custom", cookieName("custom", true))
}

func TestResolveTLSModeExplicit(t *testing.T) {
	cfg := &config.Config{TLS: config.TLSConfig{Mode: "off"}}
	assert.Equal(t, TLSModeOff, resolveTLSMode(cfg))

	cfg = &config.Config{TLS: config.TLSConfig{Mode: "manual"}}
	assert.Equal(t, TLSModeManual, resolveTLSMode(cfg))

	cfg = &config.Config{TLS: config.TLSConfig{Mode: "selfsigned"}}
	assert.Equal(t, TLSModeSelfSigned, resolveTLSMode(cfg))
}

func TestResolveTLSModeAuto(t *testing.T) {
	// Localhost never gets TLS in auto mode.
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost"},
		TLS:    config.TLSConfig{Mode: "auto"},
	}
	assert.Equal(t, TLSModeOff, resolveTLSMode(cfg))

	// Configured cert files win over self-signed.
	cfg = &config.Config{
		Server: config.ServerConfig{Host: "example.com"},
		TLS:    config.TLSConfig{Mode: "auto", CertFile: "cert.pem", KeyFile: "key.pem"},
	}
	assert.Equal(t, TLSModeManual, resolveTLSMode(cfg))
}
