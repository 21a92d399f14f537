// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token generates one-time verification tokens.
package token

import (
	"crypto/rand"
	"fmt"
)

const (
	// URLLength is the length of link-delivered verification tokens.
	URLLength = 128
	// OTPLength is the length of human-typed numeric codes.
	OTPLength = 6

	urlAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	numericAlphabet = "0123456789"
)

// URLString returns a cryptographically random URL-safe token of length n.
func URLString(n int) (string, error) {
	return randomString(n, urlAlphabet)
}

// Numeric returns a cryptographically random numeric code of length n.
func Numeric(n int) (string, error) {
	return randomString(n, numericAlphabet)
}

// randomString draws characters by rejection sampling: bytes outside the
// largest multiple of the alphabet size are discarded, so every character is
// equally likely even when 256 is not divisible by the alphabet length.
func randomString(n int, alphabet string) (string, error) {
	limit := 256 - 256%len(alphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
