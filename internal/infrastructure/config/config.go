// Package config loads application settings from config.yaml, .env and
// environment variables.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Server struct {
	Port string `mapstructure:"port"`
}

type Upstream struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type Cache struct {
	Dir        string `mapstructure:"dir"`
	InMemory   bool   `mapstructure:"in_memory"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	Namespace  string `mapstructure:"namespace"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type AppConfig struct {
	Server   Server   `mapstructure:"server"`
	Upstream Upstream `mapstructure:"upstream"`
	Cache    Cache    `mapstructure:"cache"`
	Logging  Logging  `mapstructure:"logging"`
}

// Init loads the configuration. Both .env and config.yaml are optional;
// environment variables and defaults always apply.
func Init() (*AppConfig, error) {
	var cfg AppConfig

	_ = godotenv.Load()

	viper.SetConfigFile("config.yaml")
	viper.SetConfigType("yaml")
	_ = viper.ReadInConfig()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("upstream.base_url", "https://api.argentinadatos.com")
	viper.SetDefault("upstream.timeout_seconds", 10)
	viper.SetDefault("cache.dir", "./data")
	viper.SetDefault("cache.in_memory", false)
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.SetDefault("cache.namespace", "arsrates")
	viper.SetDefault("logging.level", "info")

	// server env vars
	_ = viper.BindEnv("server.port", "SERVER_PORT")

	// upstream env vars
	_ = viper.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL")
	_ = viper.BindEnv("upstream.timeout_seconds", "UPSTREAM_TIMEOUT_SECONDS")

	// cache env vars
	_ = viper.BindEnv("cache.dir", "CACHE_DIR")
	_ = viper.BindEnv("cache.in_memory", "CACHE_IN_MEMORY")
	_ = viper.BindEnv("cache.ttl_seconds", "CACHE_TTL_SECONDS")
	_ = viper.BindEnv("cache.namespace", "CACHE_NAMESPACE")

	// logging env vars
	_ = viper.BindEnv("logging.level", "LOG_LEVEL")

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}
