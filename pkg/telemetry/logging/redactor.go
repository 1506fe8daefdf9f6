package logging

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"mercator-hq/meridian/pkg/config"
)

// Redactor redacts PII (Personally Identifiable Information) from log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternEmail       = "email"
	PatternIPv4        = "ipv4"
	PatternIPv6        = "ipv6"
	PatternPassword    = "password"
	PatternBearerToken = "bearer_token"
	PatternHomeDir     = "home_dir"
)

var defaultPatterns = map[string]struct {
	regex       string
	replacement string
}{
	PatternAPIKey: {
		regex:       `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:]\s*[a-zA-Z0-9]+)`,
		replacement: "sk-***",
	},
	PatternEmail: {
		regex:       `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
		replacement: "***@***",
	},
	PatternIPv4: {
		regex:       `\b(?:\d{1,3}\.){3}\d{1,3}\b`,
		replacement: "*.*.*.*",
	},
	PatternIPv6: {
		regex:       `\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`,
		replacement: "****:****:****:****:****:****:****:****",
	},
	PatternBearerToken: {
		regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
		replacement: "Bearer ***",
	},
	PatternPassword: {
		regex:       `(password|passwd|pwd)[:=]\s*[^\s]+`,
		replacement: "$1: ***",
	},
	// User names embedded in workspace paths.
	PatternHomeDir: {
		regex:       `(/home/|/Users/)[^/\s]+`,
		replacement: "${1}***",
	},
}

// NewRedactor creates a new Redactor with default and custom patterns.
// Invalid custom patterns are skipped; config validation reports them.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	names := make([]string, 0, len(defaultPatterns))
	for name := range defaultPatterns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := defaultPatterns[name]
		r.patterns = append(r.patterns, &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// PatternCount returns the number of active patterns.
func (r *Redactor) PatternCount() int {
	return len(r.patterns)
}

// RedactString redacts PII from a string value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// RedactArgs redacts PII from variadic log arguments in key, value form.
func (r *Redactor) RedactArgs(args ...any) []any {
	if r == nil || len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		key, ok := redacted[i-1].(string)
		if ok && isSensitiveKey(key) {
			redacted[i] = redactValue(redacted[i])
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// RedactAttr redacts a slog attribute, recursing into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, redactValue(v.String()).(string))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	default:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"auth", "authorization",
	"private_key", "privatekey",
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// redactValue redacts a sensitive value completely, keeping a short
// prefix of long strings.
func redactValue(value any) any {
	v, ok := value.(string)
	if !ok {
		return "***"
	}
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}

// RedactEmail redacts an email address partially (shows first char and domain).
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	username := parts[0]
	domain := parts[1]

	if len(username) == 0 {
		return "***@" + domain
	}

	return string(username[0]) + "***@" + domain
}

// RedactIPv4 redacts an IPv4 address, keeping only the first octet.
func RedactIPv4(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ip
	}

	return parts[0] + ".*.*.*"
}
