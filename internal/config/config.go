package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fjod/food-orders/internal/domain"
	"github.com/fjod/food-orders/internal/repository"
)

type Config struct {
	HTTPPort              string        `mapstructure:"HTTP_PORT"`
	GRPCPort              string        `mapstructure:"GRPC_PORT"`
	MongoURI              string        `mapstructure:"MONGO_URI"`
	MongoDBName           string        `mapstructure:"MONGO_DB_NAME"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR"`
	RedisPassword         string        `mapstructure:"REDIS_PASSWORD"`
	DBHost                string        `mapstructure:"DB_HOST"`
	DBPort                int           `mapstructure:"DB_PORT"`
	DBUser                string        `mapstructure:"DB_USER"`
	DBPassword            string        `mapstructure:"DB_PASSWORD"`
	DBName                string        `mapstructure:"DB_NAME"`
	DBSSLMode             string        `mapstructure:"DB_SSLMODE"`
	MigrationsPath        string        `mapstructure:"MIGRATIONS_PATH"`
	CatalogDBPath         string        `mapstructure:"CATALOG_DB_PATH"`
	CatalogMigrationsPath string        `mapstructure:"CATALOG_MIGRATIONS_PATH"`
	KafkaBrokers          string        `mapstructure:"KAFKA_BROKERS"`
	OrderEventsTopic      string        `mapstructure:"ORDER_EVENTS_TOPIC"`
	ConsumerGroupID       string        `mapstructure:"CONSUMER_GROUP_ID"`
	JWTSecret             string        `mapstructure:"JWT_SECRET"`
	DeliveryFee           string        `mapstructure:"DELIVERY_FEE"`
	TaxRate               string        `mapstructure:"TAX_RATE"`
	TransitionPolicy      string        `mapstructure:"ORDER_TRANSITION_POLICY"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout       time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CORSAllowedOrigins    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	TrackingBaseURL       string        `mapstructure:"TRACKING_BASE_URL"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	LogPretty             bool          `mapstructure:"LOG_PRETTY"`
}

var defaults = map[string]any{
	"HTTP_PORT":               "8080",
	"GRPC_PORT":               "50051",
	"MONGO_URI":               "mongodb://localhost:27017",
	"MONGO_DB_NAME":           "food_orders",
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_USER":                 "postgres",
	"DB_PASSWORD":             "postgres",
	"DB_NAME":                 "orders",
	"DB_SSLMODE":              "disable",
	"MIGRATIONS_PATH":         "internal/repository/migrations",
	"CATALOG_DB_PATH":         "catalog.db",
	"CATALOG_MIGRATIONS_PATH": "internal/catalog/migrations",
	"KAFKA_BROKERS":           "localhost:9092",
	"ORDER_EVENTS_TOPIC":      "order-events",
	"CONSUMER_GROUP_ID":       "cart-cleaner",
	"JWT_SECRET":              "",
	"DELIVERY_FEE":            domain.DefaultDeliveryFee.String(),
	"TAX_RATE":                domain.DefaultTaxRate.String(),
	"ORDER_TRANSITION_POLICY": string(domain.TransitionPolicyPermissive),
	"REQUEST_TIMEOUT":         "30s",
	"SHUTDOWN_TIMEOUT":        "10s",
	"CORS_ALLOWED_ORIGINS":    "*",
	"TRACKING_BASE_URL":       "http://localhost:8080",
	"LOG_LEVEL":               "info",
	"LOG_PRETTY":              false,
}

// Load reads defaults, then the optional file named by CONFIG_FILE, then the
// environment. Later sources win.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if _, err := c.Pricing(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Pricing() (domain.PricingConfig, error) {
	fee, err := decimal.NewFromString(c.DeliveryFee)
	if err != nil || fee.IsNegative() {
		return domain.PricingConfig{}, fmt.Errorf("invalid DELIVERY_FEE %q", c.DeliveryFee)
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil || rate.IsNegative() {
		return domain.PricingConfig{}, fmt.Errorf("invalid TAX_RATE %q", c.TaxRate)
	}
	return domain.PricingConfig{DeliveryFee: fee, TaxRate: rate}, nil
}

func (c *Config) Policy() (domain.TransitionPolicy, error) {
	return domain.ParseTransitionPolicy(c.TransitionPolicy)
}

func (c *Config) Postgres() repository.Credentials {
	return repository.Credentials{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
