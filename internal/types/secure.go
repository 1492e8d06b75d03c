package types

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a credential (gateway key secret, webhook secret, email
// API key, database URL). String and MarshalJSON return a redacted placeholder
// so the value never reaches logs or serialized config dumps.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// LogValue keeps slog from printing the raw value when a secret is passed as
// an attribute.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// Unmask returns the raw plaintext value. Call sites are limited to building
// Authorization headers, HMAC keys, and connection strings.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a non-empty value was configured.
func (s SecretString) IsSet() bool {
	return s != ""
}
