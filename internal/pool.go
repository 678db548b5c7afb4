package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

// generateIAMToken is swapped out in tests.
var generateIAMToken = func(ctx context.Context, endpoint, region string, creds aws.CredentialsProvider) (string, error) {
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, region, creds)
}

// ResolvePassword returns the password to connect with. When UseIAM is set a
// fresh IAM auth token replaces the static password; on failure the static
// password is kept.
func ResolvePassword(ctx context.Context, cfg labdb.DatabaseConfig) string {
	if !cfg.UseIAM {
		return cfg.Password
	}
	var opts []func(*config.LoadOptions) error
	if cfg.IAMRegion != "" {
		opts = append(opts, config.WithRegion(cfg.IAMRegion))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		zap.S().Warnw("load aws config for IAM auth failed, using static password", "err", err)
		return cfg.Password
	}
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := generateIAMToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
	if err != nil || token == "" {
		zap.S().Warnw("generate IAM auth token failed, using static password", "err", err)
		return cfg.Password
	}
	zap.S().Infow("using IAM auth token for postgres", "endpoint", endpoint)
	return token
}

// NewPool opens a pgx pool sized from cfg and pings it.
func NewPool(ctx context.Context, cfg labdb.DatabaseConfig) (*pgxpool.Pool, error) {
	if err := ValidatePostgresConfig(cfg); err != nil {
		return nil, err
	}
	cfg.Password = ResolvePassword(ctx, cfg)

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// ValidatePostgresConfig performs basic sanity checks on Postgres-related settings.
func ValidatePostgresConfig(cfg labdb.DatabaseConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("database.port must be a valid TCP port")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("database.maxConnections must be greater than 0")
	}
	return nil
}

// PostgresHealthCheck runs a trivial query against the pool.
func PostgresHealthCheck(ctx context.Context, pool dbPool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres simple query failed: %w", err)
	}
	return nil
}
