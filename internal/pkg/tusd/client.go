package tusd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"go.uber.org/zap"
)

const tusResumableVersion = "1.0.0"

// Config defines the tusd gateway configuration
type Config struct {
	Endpoint string        `mapstructure:"endpoint"` // e.g. http://tusd:8080/files
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns default tusd gateway configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://tusd:8080/files",
		Timeout:  10 * time.Second,
	}
}

// Client issues physical delete-by-path requests against the tusd server.
// Deletes are idempotent by path: a missing upload is not an error.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a new tusd gateway client
func New(cfg *Config, log *logger.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// Delete removes the upload stored under path from the tusd server
func (c *Client) Delete(ctx context.Context, path string) error {
	url := c.endpoint + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build tusd delete request: %w", err)
	}
	req.Header.Set("Tus-Resumable", tusResumableVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tusd delete request failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	// 404 means the blob is already gone, which is the state we wanted.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("tusd delete returned status %d for %s", resp.StatusCode, path)
	}

	c.logger.Debug("tusd upload deleted",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
