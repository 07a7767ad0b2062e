package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/awsclient"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/config"
)

// Open builds the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (VersionedStore, error) {
	logger.Info("Opening store", zap.String("backend", cfg.Store.Backend))

	switch cfg.Store.Backend {
	case config.BackendDynamoDB:
		awsCfg, err := awsclient.Load(ctx, cfg.DynamoDB.Region)
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
			}
		})
		return NewDynamoStore(client, cfg.DynamoDB.Table), nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisStore(rdb), nil

	case config.BackendPostgres:
		return NewPostgresPool(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)

	case config.BackendMemory:
		logger.Warn("Memory store is process-local; data is lost on exit")
		return NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
