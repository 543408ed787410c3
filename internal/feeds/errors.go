package feeds

import (
	"errors"
	"fmt"
)

// NetworkError covers transport failures and non-2xx upstream responses
type NetworkError struct {
	Host   string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s returned status %d", e.Host, e.Status)
	}
	return fmt.Sprintf("request to %s failed: %v", e.Host, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamShapeError means the provider responded but the payload is missing
// fields the normalizer expects
type UpstreamShapeError struct {
	Feed   string
	Detail string
}

func (e *UpstreamShapeError) Error() string {
	return fmt.Sprintf("%s payload malformed: %s", e.Feed, e.Detail)
}

// InvalidParameterError is a caller bug: a supplied value outside the
// accepted set. It fails fast at the client boundary.
type InvalidParameterError struct {
	Param   string
	Value   string
	Allowed string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %q (allowed: %s)", e.Param, e.Value, e.Allowed)
}

// RateLimitedError is an upstream HTTP 429. Auto-refresh for the feed must
// stay disabled until a manual retry.
type RateLimitedError struct {
	Host string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by %s", e.Host)
}

// ConfigurationError means a required server secret is missing
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("server configuration error: %s is not set", e.Missing)
}

// IsRateLimited reports whether err is (or wraps) a RateLimitedError
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsInvalidParameter reports whether err is (or wraps) an InvalidParameterError
func IsInvalidParameter(err error) bool {
	var ip *InvalidParameterError
	return errors.As(err, &ip)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
