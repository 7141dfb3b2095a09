package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned when a key is not present
var ErrCacheMiss = errors.New("redis: cache miss")

// Config defines the redis configuration
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DefaultConfig returns default redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host: "localhost",
		Port: 6379,
	}
}

// Addr returns the host:port address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Client wraps the go-redis client with JSON helpers
type Client struct {
	*redis.Client
	logger *logger.Logger
}

// New creates a new redis client and verifies connectivity
func New(cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected successfully", zap.String("addr", cfg.Addr()))

	return &Client{Client: rdb, logger: log}, nil
}

// NewFromClient wraps an existing go-redis client, used by tests
func NewFromClient(rdb *redis.Client, log *logger.Logger) *Client {
	return &Client{Client: rdb, logger: log}
}

// SetJSON marshals value and stores it under key with the given TTL
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// GetJSON fetches key and unmarshals it into out
func (c *Client) GetJSON(ctx context.Context, key string, out interface{}) error {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
