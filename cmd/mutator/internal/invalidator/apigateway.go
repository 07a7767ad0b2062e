// Package invalidator flushes the API Gateway stage cache in front of the reader.
package invalidator

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"go.uber.org/zap"
)

type StageCacheAPI interface {
	FlushStageCache(ctx context.Context, params *apigateway.FlushStageCacheInput, optFns ...func(*apigateway.Options)) (*apigateway.FlushStageCacheOutput, error)
}

type StageCacheFlusher struct {
	api    StageCacheAPI
	apiID  string
	stage  string
	logger *zap.Logger
}

// NewStageCacheFlusher returns a flusher for one REST API stage. api may be
// nil when apiID or stage is empty; the flusher then never calls it.
func NewStageCacheFlusher(api StageCacheAPI, apiID, stage string, logger *zap.Logger) *StageCacheFlusher {
	return &StageCacheFlusher{api: api, apiID: apiID, stage: stage, logger: logger}
}

func (f *StageCacheFlusher) Configured() bool {
	return f.apiID != "" && f.stage != ""
}

// Flush reports whether the stage cache was flushed. An unconfigured flusher
// returns false without calling API Gateway.
func (f *StageCacheFlusher) Flush(ctx context.Context) bool {
	if !f.Configured() || f.api == nil {
		f.logger.Warn("API_ID or STAGE_NAME not set")
		return false
	}

	_, err := f.api.FlushStageCache(ctx, &apigateway.FlushStageCacheInput{
		RestApiId: aws.String(f.apiID),
		StageName: aws.String(f.stage),
	})
	if err != nil {
		f.logger.Error("Cache invalidation error", zap.String("api_id", f.apiID), zap.Error(err))
		return false
	}

	f.logger.Info("Invalidated cache", zap.String("api_id", f.apiID), zap.String("stage", f.stage))
	return true
}
