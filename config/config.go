package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultTablePrefix   = "wp_"
	DefaultTrustedHost   = "personyze.com"
	DefaultNonceLifetime = 24 * time.Hour
	DefaultCartMaxAge    = 48 * time.Hour
)

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// TomlAdmin is an administrator allowed to call the REST endpoints
type TomlAdmin struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"` // bcrypt
}

// TomlSite describes the WordPress installation the service sits next to
type TomlSite struct {
	URL         string `toml:"url"`
	TablePrefix string `toml:"table_prefix"`
	WPVersion   string `toml:"wp_version"`
	// Reverse proxy target. Empty disables proxy mode.
	Upstream string `toml:"upstream"`
}

// TomlSecurity holds the access control settings
type TomlSecurity struct {
	// DevMode skips the origin check on REST routes
	DevMode       bool        `toml:"dev_mode"`
	TrustedHost   string      `toml:"trusted_host"`
	NonceSecret   string      `toml:"nonce_secret"`
	NonceLifetime Duration    `toml:"nonce_lifetime"`
	Admins        []TomlAdmin `toml:"admins"`
	AllowOrigins  []string    `toml:"allow_origins"`
}

// TomlWooCommerce toggles the cart subsystem
type TomlWooCommerce struct {
	Enabled    bool     `toml:"enabled"`
	CartMaxAge Duration `toml:"cart_max_age"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Site        TomlSite        `toml:"site"`
	Security    TomlSecurity    `toml:"security"`
	WooCommerce TomlWooCommerce `toml:"woocommerce"`
}

// Duration lets TOML files use strings like "24h"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a configuration usable for local development
func Default() *TomlConfig {
	cfg := &TomlConfig{}
	applyDefaults(cfg)
	return cfg
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes TOML, fills defaults and validates the result
func ParseConfig(data []byte) (*TomlConfig, error) {
	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *TomlConfig) {
	if config.Site.TablePrefix == "" {
		config.Site.TablePrefix = DefaultTablePrefix
	}
	if config.Site.URL == "" {
		config.Site.URL = "http://localhost"
	}
	if config.Security.TrustedHost == "" {
		config.Security.TrustedHost = DefaultTrustedHost
	}
	if config.Security.NonceLifetime.Duration == 0 {
		config.Security.NonceLifetime.Duration = DefaultNonceLifetime
	}
	if config.WooCommerce.CartMaxAge.Duration == 0 {
		config.WooCommerce.CartMaxAge.Duration = DefaultCartMaxAge
	}
}

func validate(config *TomlConfig) error {
	if !tablePrefixPattern.MatchString(config.Site.TablePrefix) {
		return fmt.Errorf("table prefix %q may only contain letters, digits and underscores", config.Site.TablePrefix)
	}

	if config.Security.NonceSecret == "" && !config.Security.DevMode {
		return errors.New("security.nonce_secret is required outside dev mode")
	}

	for _, origin := range config.Security.AllowOrigins {
		if err := validateOrigin(origin); err != nil {
			return fmt.Errorf("security.allow_origins: %w", err)
		}
	}

	for _, admin := range config.Security.Admins {
		if admin.Username == "" || admin.PasswordHash == "" {
			return errors.New("every admin needs a username and a password_hash")
		}
	}

	return nil
}

// validateOrigin accepts "*" or a scheme and host such as https://personyze.com
func validateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("origin %q: %w", origin, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return fmt.Errorf("origin %q must be a scheme and host such as https://personyze.com", origin)
	}
	return nil
}
