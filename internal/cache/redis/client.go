package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/metrics"
	"github.com/churnsight/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetReport caches a finished risk report under the customer id.
func (c *Client) SetReport(ctx context.Context, customerID string, report interface{}, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	err = c.client.Set(ctx, reportKey(customerID), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set report cache: %w", err)
	}

	logger.Debug("Report cached", zap.String("customer_id", customerID), zap.Duration("ttl", ttl))
	return nil
}

// GetReport loads a cached report into out. Returns false on a miss.
func (c *Client) GetReport(ctx context.Context, customerID string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, reportKey(customerID)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("report").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get report cache: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	metrics.CacheHits.WithLabelValues("report").Inc()
	logger.Debug("Report cache hit", zap.String("customer_id", customerID))
	return true, nil
}

// InvalidateReport drops a customer's cached report, e.g. after new events
// arrive.
func (c *Client) InvalidateReport(ctx context.Context, customerID string) error {
	return c.client.Del(ctx, reportKey(customerID)).Err()
}

func reportKey(customerID string) string {
	return fmt.Sprintf("report:%s", customerID)
}
