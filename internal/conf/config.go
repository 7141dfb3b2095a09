package conf

import (
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/minio"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/redis"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/tusd"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database database.Config `mapstructure:"database"`
	Redis    redis.Config    `mapstructure:"redis"`
	MinIO    minio.Config    `mapstructure:"minio"`
	Tusd     tusd.Config     `mapstructure:"tusd"`
	Log      logger.Config   `mapstructure:"log"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Link     LinkConfig      `mapstructure:"link"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LinkConfig struct {
	BaseURL    string        `mapstructure:"base_url"`    // public prefix share tokens are appended to
	DefaultTTL time.Duration `mapstructure:"default_ttl"` // used when a share request carries no TTL
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 24 * time.Hour
	}
	if config.Link.DefaultTTL == 0 {
		config.Link.DefaultTTL = 30 * 24 * time.Hour
	}

	return &config, nil
}
