package pipeline

import (
	"fmt"

	"github.com/wonny/qcdash/internal/output"
	"github.com/wonny/qcdash/internal/quantconnect"
	"github.com/wonny/qcdash/pkg/config"
	"github.com/wonny/qcdash/pkg/httputil"
	"github.com/wonny/qcdash/pkg/logger"
	"github.com/wonny/qcdash/pkg/redis"
)

const redisPrefix = "qcdash"

// NewAPIClient wires the QuantConnect client from config.
// The returned close func releases the Redis connection, if any.
func NewAPIClient(cfg *config.Config, log *logger.Logger) (*quantconnect.Client, func(), error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, nil, err
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}

	httpClient := httputil.New(cfg, log)
	if rdb.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(rdb, redisPrefix), redis.QuantConnectRateLimit(cfg.QC.RateLimit))
	}

	creds := quantconnect.Credentials{UserID: cfg.QC.UserID, APIToken: cfg.QC.APIToken}
	client := quantconnect.NewClient(httpClient, creds, cfg.QC.BaseURL, log)
	if rdb.Enabled() {
		client.WithCache(redis.NewCache(rdb, redisPrefix))
	}

	log.WithFields(map[string]interface{}{
		"user_id":  cfg.QC.UserID,
		"base_url": cfg.QC.BaseURL,
		"redis":    rdb.Enabled(),
	}).Debug("QuantConnect client ready")

	return client, func() { _ = rdb.Close() }, nil
}

// Build wires a production runner from config
func Build(cfg *config.Config, log *logger.Logger) (*Runner, func(), error) {
	tracked, err := cfg.TrackedProjects()
	if err != nil {
		return nil, nil, err
	}

	client, closeFn, err := NewAPIClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	runner := NewRunner(client, output.NewWriter(log), Options{
		OutputPath: cfg.Pipeline.OutputPath,
		Workers:    cfg.Pipeline.Workers,
		RunTimeout: cfg.Pipeline.RunTimeout,
		MaxPoints:  cfg.Pipeline.EquityMaxPoints,
		Tracked:    tracked,
	}, log)

	return runner, closeFn, nil
}
