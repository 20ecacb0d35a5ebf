package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"restaurant-pos/internal/connections/database"
	"restaurant-pos/internal/connections/rabbitmq"
	"restaurant-pos/internal/pos/cart"
	"restaurant-pos/internal/pos/navguard"
)

// EnvPrefix prefixes every environment override, e.g. POS_DB_HOST.
const EnvPrefix = "POS_"

// Config holds every application setting.
type Config struct {
	Database database.Config `yaml:"database" envPrefix:"DB_"`
	RabbitMQ rabbitmq.Config `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Terminal TerminalConfig  `yaml:"terminal" envPrefix:"TERMINAL_"`
	Session  SessionConfig   `yaml:"session" envPrefix:"SESSION_"`
	HTTP     HTTPConfig      `yaml:"http" envPrefix:"HTTP_"`
	Log      LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

type TerminalConfig struct {
	TaxRate    string   `yaml:"tax_rate" env:"TAX_RATE"`
	TaxMode    string   `yaml:"tax_mode" env:"TAX_MODE"`
	SaleRoutes []string `yaml:"sale_routes" env:"SALE_ROUTES" envSeparator:","`
	LogoutPath string   `yaml:"logout_path" env:"LOGOUT_PATH"`
	// OfflineCache keeps the last known remote state for reads while the
	// database is unreachable.
	OfflineCache bool `yaml:"offline_cache" env:"OFFLINE_CACHE"`
}

type SessionConfig struct {
	DefaultMinutes int `yaml:"default_minutes" env:"DEFAULT_MINUTES"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

func Default() Config {
	return Config{
		Database: database.Config{Host: "localhost", Port: 5432, User: "pos", Database: "pos", SSLMode: "disable", MaxConns: 10},
		RabbitMQ: rabbitmq.Config{Host: "localhost", Port: 5672, User: "guest", Password: "guest", VHost: "/", Attempts: 5},
		Terminal: TerminalConfig{
			TaxRate:    "0",
			TaxMode:    string(cart.TaxInclusive),
			SaleRoutes: append([]string(nil), navguard.DefaultSaleRoutes...),
			LogoutPath: "/login",
		},
		HTTP: HTTPConfig{Port: 3000},
		Log:  LogConfig{Level: "info"},
	}
}

// LoadConfig reads path over the defaults and then applies POS_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("couldn't open the configuration file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.RabbitMQ.Host == "" {
		errs = append(errs, errors.New("rabbitmq.host is required"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.Session.DefaultMinutes < 0 {
		errs = append(errs, errors.New("session.default_minutes must not be negative"))
	}
	if _, err := c.Terminal.TaxPolicy(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TaxPolicy parses the terminal tax settings.
func (t TerminalConfig) TaxPolicy() (cart.TaxPolicy, error) {
	rate := decimal.Zero
	if t.TaxRate != "" {
		var err error
		if rate, err = decimal.NewFromString(t.TaxRate); err != nil {
			return cart.TaxPolicy{}, fmt.Errorf("terminal.tax_rate: %w", err)
		}
	}
	if rate.IsNegative() {
		return cart.TaxPolicy{}, errors.New("terminal.tax_rate must not be negative")
	}
	mode, err := cart.ParseTaxMode(t.TaxMode)
	if err != nil {
		return cart.TaxPolicy{}, fmt.Errorf("terminal.tax_mode: %w", err)
	}
	return cart.TaxPolicy{Rate: rate, Mode: mode}, nil
}

// FindConfig returns the first configuration file present in the usual
// locations.
func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.yaml", "/etc/restaurant-pos/config.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
