package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate validates the configuration and returns any errors.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	addError := func(path, msg string) {
		errs = append(errs, ValidationError{Path: path, Message: msg})
	}

	if cfg == nil {
		addError("", "configuration is nil")
		return errs
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		addError("server.port", fmt.Sprintf("invalid port %d", cfg.Server.Port))
	}

	for i, proxy := range cfg.Server.TrustedProxies {
		if !isValidProxySpec(proxy) {
			addError(
				fmt.Sprintf("server.trustedProxies[%d]", i),
				fmt.Sprintf("%q is not a valid IP or CIDR", proxy),
			)
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			addError("metrics.port", fmt.Sprintf("invalid port %d", cfg.Metrics.Port))
		}
		if cfg.Metrics.Port == cfg.Server.Port {
			addError("metrics.port", "must differ from server.port")
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			addError("metrics.path", "must start with /")
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		addError("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		addError("logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format))
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			addError("tracing.sampleRate", "must be between 0 and 1")
		}
	}

	if cfg.Redis.Address == "" {
		addError("redis.address", "must not be empty")
	}
	if cfg.Redis.DB < 0 {
		addError("redis.db", "must not be negative")
	}

	if cfg.Admission.Table == "" {
		addError("admission.table", "must not be empty")
	}

	for i, path := range cfg.Admission.Gate.SkipPaths {
		if !strings.HasPrefix(path, "/") {
			addError(
				fmt.Sprintf("admission.gate.skipPaths[%d]", i),
				"must start with /",
			)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// isValidProxySpec reports whether s is a plain IP or a CIDR range.
func isValidProxySpec(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(s)
	return err == nil
}
