package logger

import (
	"log/slog"
	"strings"
)

// AdminTokenPrefix marks plaintext admin tokens issued by
// `pixelsync-cli admin hash-token`.
const AdminTokenPrefix = "pxadm_"

const redactedValue = "***REDACTED***"

// Key segments that mark an attribute as secret. Keys are split on '_',
// '-' and '.' before matching, so "admin_token_hash" matches "token" but
// "tokens_issued" does not.
var sensitiveSegments = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"credential":    true,
	"credentials":   true,
	"authorization": true,
	"bearer":        true,
}

func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if strings.HasPrefix(s, AdminTokenPrefix) {
			return slog.String(a.Key, RedactString(s))
		}
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactString masks an admin token, keeping the prefix and the first
// four characters of its body. Other values are returned unchanged.
func RedactString(value string) string {
	if !strings.HasPrefix(value, AdminTokenPrefix) {
		return value
	}
	body := value[len(AdminTokenPrefix):]
	if len(body) <= 8 {
		return AdminTokenPrefix + "****"
	}
	return AdminTokenPrefix + body[:4] + "****"
}

// IsSensitiveKey reports whether an attribute key names a secret.
func IsSensitiveKey(key string) bool {
	for _, seg := range strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	}) {
		if sensitiveSegments[seg] {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value looks like an admin token.
func IsSensitiveValue(value string) bool {
	return strings.HasPrefix(value, AdminTokenPrefix)
}
