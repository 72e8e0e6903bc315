package app

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/caarlos0/env/v11"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Pepper literal, or a file to read it from when the literal is unset.
	InvitePepper     string `env:"GATEKEEPER_INVITE_PEPPER"`
	InvitePepperFile string `env:"GATEKEEPER_INVITE_PEPPER_FILE"`

	// sqlite uses DatabaseFile, postgres uses DatabaseURL.
	DatabaseDriver string `env:"GATEKEEPER_DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseFile   string `env:"GATEKEEPER_DATABASE_FILE" envDefault:"gatekeeper.db"`
	DatabaseURL    string `env:"GATEKEEPER_DATABASE_URL"`

	// HS256 secret and expected iss claim of issuer tokens.
	IssuerSecret string `env:"GATEKEEPER_ISSUER_SECRET"`
	Issuer       string `env:"GATEKEEPER_ISSUER" envDefault:"gatekeeper"`

	DefaultInviteTTL time.Duration `env:"GATEKEEPER_DEFAULT_INVITE_TTL" envDefault:"168h"`

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	RedeemLimit httpx.RateLimitConfig `envPrefix:"GATEKEEPER_RATELIMIT_REDEEM_"`
	IssuerLimit httpx.RateLimitConfig `envPrefix:"GATEKEEPER_RATELIMIT_ISSUER_"`
}

// LoadConfig reads the environment once and validates the result. Every
// failure is a *cryptox.ConfigurationError.
func LoadConfig() (Config, error) {
	cfg := Config{
		RedeemLimit: httpx.RedeemLimit,
		IssuerLimit: httpx.IssuerLimit,
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, &cryptox.ConfigurationError{Setting: "environment", Reason: "cannot parse", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	if _, err := c.Pepper(); err != nil {
		return err
	}

	if len(c.IssuerSecret) < jwtx.MinSecretLength {
		return &cryptox.ConfigurationError{
			Setting: "GATEKEEPER_ISSUER_SECRET",
			Reason:  fmt.Sprintf("must be at least %d bytes", jwtx.MinSecretLength),
		}
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			return &cryptox.ConfigurationError{Setting: "GATEKEEPER_DATABASE_FILE", Reason: "required for sqlite"}
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return &cryptox.ConfigurationError{Setting: "GATEKEEPER_DATABASE_URL", Reason: "required for postgres"}
		}
	default:
		return &cryptox.ConfigurationError{
			Setting: "GATEKEEPER_DATABASE_DRIVER",
			Reason:  fmt.Sprintf("unsupported driver %q", c.DatabaseDriver),
		}
	}

	if c.DefaultInviteTTL <= 0 || c.DefaultInviteTTL > service.MaxInviteTTL {
		return &cryptox.ConfigurationError{
			Setting: "GATEKEEPER_DEFAULT_INVITE_TTL",
			Reason:  fmt.Sprintf("must be between 0 and %s", service.MaxInviteTTL),
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return &cryptox.ConfigurationError{Setting: "PORT", Reason: "out of range"}
	}

	for name, rl := range map[string]httpx.RateLimitConfig{
		"GATEKEEPER_RATELIMIT_REDEEM_REQUESTS": c.RedeemLimit,
		"GATEKEEPER_RATELIMIT_ISSUER_REQUESTS": c.IssuerLimit,
	} {
		if rl.RequestsPerWindow <= 0 {
			return &cryptox.ConfigurationError{Setting: name, Reason: "must be positive"}
		}
	}

	return nil
}

// Pepper resolves the invite pepper from the literal or the file.
func (c Config) Pepper() (cryptox.Pepper, error) {
	return cryptox.LoadPepper(c.InvitePepper, c.InvitePepperFile)
}

// String omits secrets and is safe to log.
func (c Config) String() string {
	return fmt.Sprintf("driver=%s env=%s port=%d issuer=%s default_invite_ttl=%s",
		c.DatabaseDriver, c.Env, c.Port, c.Issuer, c.DefaultInviteTTL)
}
