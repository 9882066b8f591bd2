// Package util provides utility functions for the FocusGuard application.
package util

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// GenerateNotificationID generates a unique notification ID with "n_" prefix.
func GenerateNotificationID() string {
	return "n_" + uuid.NewString()
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2 with optimal entropy utilization for non-cryptographic purposes.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.Intn(16)])
	}

	return builder.String()
}
