package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServiceConfig holds HTTP service configuration for `jwtkit serve`
type ServiceConfig struct {
	Port       int    `mapstructure:"port"`
	HealthPort int    `mapstructure:"health_port"`
	Host       string `mapstructure:"host"`
	LogLevel   string `mapstructure:"log_level"`
}

// Addr returns the service listen address
func (c ServiceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HealthAddr returns the health check listen address
func (c ServiceConfig) HealthAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

// JWKSConfig controls key set retrieval and caching
type JWKSConfig struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int           `mapstructure:"cache_size"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// AnalyzerConfig holds the security analyzer thresholds
type AnalyzerConfig struct {
	ExpiringSoon time.Duration `mapstructure:"expiring_soon"`
	ClockSkew    time.Duration `mapstructure:"clock_skew"`
	LongLived    time.Duration `mapstructure:"long_lived"`
}

// PolicyConfig selects the Rego policy used by `analyze --policy` and the API
type PolicyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

// OAuthConfig holds client credentials for `jwtkit fetch-token`
type OAuthConfig struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	Audience     string   `mapstructure:"audience"`
}

// Config is the complete jwtkit configuration
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	JWKS     JWKSConfig     `mapstructure:"jwks"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	OTel     OTelConfig     `mapstructure:"otel"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
}

// InitViper initializes Viper with common settings
func InitViper(appName string) *viper.Viper {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(fmt.Sprintf("./%s", appName))
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(fmt.Sprintf("%s/.config/%s", home, appName))
	}
	v.AddConfigPath(fmt.Sprintf("/etc/%s/", appName))

	// Environment variable settings
	v.SetEnvPrefix("JWTKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return v
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", 8080)
	v.SetDefault("service.health_port", 8180)
	v.SetDefault("service.log_level", "info")

	v.SetDefault("jwks.cache_ttl", 5*time.Minute)
	v.SetDefault("jwks.cache_size", 128)
	v.SetDefault("jwks.http_timeout", 10*time.Second)

	v.SetDefault("analyzer.expiring_soon", 5*time.Minute)
	v.SetDefault("analyzer.clock_skew", time.Minute)
	v.SetDefault("analyzer.long_lived", 24*time.Hour)

	v.SetDefault("policy.enabled", false)
	v.SetDefault("policy.file", "")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.collector_endpoint", "")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.scopes", []string{})
	v.SetDefault("oauth.audience", "")
}

// Load reads the configuration from file and environment
func Load(v *viper.Viper, cfg any) error {
	// Support standard PORT/HOST env vars used by container platforms
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			v.Set("service.port", port)
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		v.Set("service.host", host)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// BindFlags binds common CLI flags to Viper
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Duration("clock-skew", 0, "Allowed clock skew for iat/nbf checks")
	cmd.PersistentFlags().Duration("expiring-soon", 0, "Window for the expiring-soon finding")
	cmd.PersistentFlags().Duration("jwks-timeout", 0, "HTTP timeout for JWKS and discovery requests")
	cmd.PersistentFlags().String("policy-file", "", "Rego policy file (default is the built-in policy)")
	cmd.PersistentFlags().Bool("otel-enabled", false, "Enable OpenTelemetry tracing")
	cmd.PersistentFlags().String("otel-collector-endpoint", "", "OpenTelemetry collector gRPC endpoint (e.g. localhost:4317)")

	v.BindPFlag("service.log_level", cmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("analyzer.clock_skew", cmd.PersistentFlags().Lookup("clock-skew"))
	v.BindPFlag("analyzer.expiring_soon", cmd.PersistentFlags().Lookup("expiring-soon"))
	v.BindPFlag("jwks.http_timeout", cmd.PersistentFlags().Lookup("jwks-timeout"))
	v.BindPFlag("policy.file", cmd.PersistentFlags().Lookup("policy-file"))
	v.BindPFlag("otel.enabled", cmd.PersistentFlags().Lookup("otel-enabled"))
	v.BindPFlag("otel.collector_endpoint", cmd.PersistentFlags().Lookup("otel-collector-endpoint"))
}
