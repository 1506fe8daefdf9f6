// Package logging provides structured logging with PII redaction.
//
// The package wraps log/slog. Loggers write JSON, text, or console output,
// and when RedactPII is set every attribute passes through a Redactor
// before it reaches the handler:
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//	logger.SetDefault()
//
// After SetDefault, loggers derived from slog.Default() share the same
// redacting handler.
//
// # Redaction
//
// Built-in patterns cover API keys, bearer tokens, passwords, email and IP
// addresses, and user names inside home directory paths:
//
//   - sk-abc123xyz becomes sk-***
//   - /home/alice/src/app becomes /home/***/src/app
//
// Attributes whose key looks like a credential (token, secret, password)
// are replaced outright.
//
// # Context Fields
//
// WithOperation, WithProject, WithRecordID, and WithSession store values
// that the *Context logging methods and WithContext add as fields.
package logging
