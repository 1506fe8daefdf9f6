// Package config provides configuration management for Meridian.
//
// Configuration is read from YAML, decoded on top of the defaults in
// defaults.go, optionally overridden from the environment, and validated.
//
//	cfg, err := config.LoadConfig("meridian.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("meridian.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention MERIDIAN_SECTION_FIELD:
//
//   - MERIDIAN_WORKSPACE_ROOT overrides workspace.root
//   - MERIDIAN_INDEX_BACKEND overrides index.backend
//   - MERIDIAN_INSTRUMENTATION_FLUSH_TIMEOUT overrides instrumentation.flush_timeout
//   - MERIDIAN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - MERIDIAN_TELEMETRY_TRACING_ENABLED and _ENDPOINT override telemetry.tracing
//
// # Validation
//
// Validate collects every FieldError before returning, so a single run
// reports all problems in a file:
//
//	var verr config.ValidationError
//	if errors.As(err, &verr) {
//	    for _, fe := range verr.Errors {
//	        fmt.Println(fe.Field, fe.Message)
//	    }
//	}
//
// # Process-wide Configuration
//
// Initialize stores the loaded configuration for later Get calls. Tests
// should pass *Config values explicitly instead.
package config
