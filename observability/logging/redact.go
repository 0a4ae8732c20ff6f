package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys MaskField lets through unchanged.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"operation": {},
	"route":     {},
	"method":    {},
	"status":    {},
	"account":   {},
	"signer":    {},
	"module":    {},
	"symbol":    {},
	"plan_id":   {},
}

// Keys that carry wityd credentials or request proofs. The handler built by
// SetupWithOptions masks them wherever they appear.
var secretKeys = map[string]struct{}{
	"jwt_secret":    {},
	"hmac_secret":   {},
	"token":         {},
	"authorization": {},
	"signature":     {},
	"passphrase":    {},
	"private_key":   {},
	"dsn":           {},
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, "-", "_")
}

// IsAllowlisted reports whether key is exempt from MaskField.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[normalizeKey(key)]
	return ok
}

// IsSecretKey reports whether values logged under key are always masked.
func IsSecretKey(key string) bool {
	_, ok := secretKeys[normalizeKey(key)]
	return ok
}

// MaskField redacts value unless key is allowlisted. The key casing is kept.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// redactSecret is applied to every attribute before it is written.
func redactSecret(attr slog.Attr) slog.Attr {
	if !IsSecretKey(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
