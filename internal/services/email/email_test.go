// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"context"
	"testing"

	"codeberg.org/verimail/webapp-starter/internal/config"
	"codeberg.org/verimail/webapp-starter/internal/services/email"
	"github.com/stretchr/testify/assert"
)

func TestLogOnlyModeDoesNotSend(t *testing.T) {
	// An empty SMTP host switches the service into log-only mode; delivery
	// must return without touching the network.
	svc := email.NewService(&config.SMTPConfig{}, "http://localhost:8080/")

	assert.NotPanics(t, func() {
		svc.DeliverSignUp(context.Background(), "alice@example.com", "tok", "")
		svc.DeliverSignIn(context.Background(), "alice@example.com", "tok", "123456")
	})
}
