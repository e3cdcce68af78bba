// Package config loads server settings from the environment and an optional
// dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the server configuration. Field tags name the environment variables.
type Config struct {
	WalletAddress   string `mapstructure:"server_wallet_address" validate:"required,eth_addr"`
	CDPAPIKeyID     string `mapstructure:"cdp_api_key_id" validate:"required"`
	CDPAPIKeySecret string `mapstructure:"cdp_api_key_secret" validate:"required"`
	FacilitatorURL  string `mapstructure:"facilitator_url" validate:"required,url"`
	FallbackURL     string `mapstructure:"fallback_facilitator_url" validate:"omitempty,url"`
	ResourceURL     string `mapstructure:"resource_url" validate:"required"`
	Transport       string `mapstructure:"mcp_transport" validate:"oneof=stdio http"`
	ListenAddr      string `mapstructure:"listen_addr" validate:"required"`
	LogLevel        string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

var defaults = map[string]string{
	"server_wallet_address":    "",
	"cdp_api_key_id":           "",
	"cdp_api_key_secret":       "",
	"facilitator_url":          "https://x402.org/facilitator",
	"fallback_facilitator_url": "",
	"resource_url":             "mcp://tools/make-purchase",
	"mcp_transport":            TransportHTTP,
	"listen_addr":              ":3000",
	"log_level":                "info",
}

// MissingEnvError reports a required variable that is unset or empty.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return "Missing required environment variable: " + e.Name
}

// Load reads envFile if it exists, then the process environment, which takes
// precedence. An empty envFile skips the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.ToUpper(fld.Tag.Get("mapstructure"))
	})
	return v
}

// Validate reports the first invalid field. Required variables are checked in
// declaration order.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &MissingEnvError{Name: fe.Field()}
		}
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "eth_addr":
		return fmt.Errorf("invalid %s: %q is not an Ethereum address", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Errorf("invalid %s: %q must be one of [%s]", fe.Field(), fe.Value(), fe.Param())
	default:
		return fmt.Errorf("invalid %s: %q fails %s", fe.Field(), fe.Value(), fe.Tag())
	}
}
