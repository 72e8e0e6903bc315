package cryptox

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// MinPepperLength is the shortest pepper accepted, in bytes.
const MinPepperLength = 16

// ConfigurationError reports a missing or unusable process-level setting.
// It is only ever produced while the process is starting up.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Pepper is the server-side secret mixed into invite code digests. It is
// built once at startup and handed to NewCodeHasher; it never prints itself.
type Pepper struct {
	key []byte
}

// NewPepper wraps a secret string, trimming surrounding whitespace.
func NewPepper(secret string) (Pepper, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Pepper{}, &ConfigurationError{Setting: "invite pepper", Reason: "not set"}
	}
	if len(secret) < MinPepperLength {
		return Pepper{}, &ConfigurationError{
			Setting: "invite pepper",
			Reason:  fmt.Sprintf("must be at least %d bytes", MinPepperLength),
		}
	}
	return Pepper{key: []byte(secret)}, nil
}

// LoadPepper resolves the pepper from a literal value, falling back to a file.
// A missing pepper is always an error, there is no generated fallback.
func LoadPepper(value, file string) (Pepper, error) {
	if strings.TrimSpace(value) != "" {
		return NewPepper(value)
	}
	if file == "" {
		return Pepper{}, &ConfigurationError{Setting: "invite pepper", Reason: "neither value nor file is set"}
	}

	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return Pepper{}, &ConfigurationError{Setting: "invite pepper file", Reason: "unreadable", Err: err}
	}
	return NewPepper(string(data))
}

// IsZero reports whether the pepper was never initialised.
func (p Pepper) IsZero() bool { return len(p.key) == 0 }

func (p Pepper) String() string { return "[redacted]" }

// LogValue keeps the pepper out of structured logs.
func (p Pepper) LogValue() slog.Value { return slog.StringValue("[redacted]") }
