package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/mutator/internal/feed"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/mutator/internal/invalidator"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/mutator/internal/mutator"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/awsclient"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/config"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

func main() {
	once := flag.Bool("once", false, "run a single update and print the result")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	ctx := context.Background()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	var publisher mutator.Publisher
	if cfg.Kafka.Enabled {
		feed.NewTopicCreator(logger, feed.TCPDialer{}, feed.WallSleeper{}).Ensure(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)

		pub := feed.NewPublisher(feed.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer pub.Close()
		publisher = pub
	}

	m := mutator.NewMutator(
		logger,
		st,
		newFlusher(ctx, cfg.Cache, logger),
		publisher,
		cfg.Mutator.Symbols,
		mutator.NewRealRand(),
		mutator.RealClock{},
	)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(m.HandleScheduled)
		return
	}

	if *once {
		out, _ := json.MarshalIndent(m.Run(ctx), "", "  ")
		fmt.Println(string(out))
		return
	}

	runScheduled(ctx, m, cfg.Mutator.Schedule, logger)
}

func newFlusher(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) *invalidator.StageCacheFlusher {
	var api invalidator.StageCacheAPI
	if cfg.APIID != "" && cfg.StageName != "" {
		awsCfg, err := awsclient.Load(ctx, "")
		if err != nil {
			logger.Error("Cache invalidation disabled", zap.Error(err))
		} else {
			api = apigateway.NewFromConfig(awsCfg)
		}
	}
	return invalidator.NewStageCacheFlusher(api, cfg.APIID, cfg.StageName, logger)
}

// runScheduled stands in for the EventBridge rule when running outside Lambda.
func runScheduled(ctx context.Context, m *mutator.Mutator, schedule string, logger *zap.Logger) {
	cronLogger := cronZap{logger.Sugar()}
	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger)))

	_, err := c.AddFunc(schedule, func() {
		res := m.Run(ctx)
		logger.Info("Scheduled run finished", zap.Int("status_code", res.StatusCode))
	})
	if err != nil {
		logger.Fatal("Invalid mutator schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	c.Start()
	logger.Info("Mutator scheduled", zap.String("schedule", schedule))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutdown signal received, waiting for running update...")
	<-c.Stop().Done()
	logger.Info("Shutdown Complete")
}

// cronZap adapts zap to cron.Logger
type cronZap struct{ s *zap.SugaredLogger }

func (l cronZap) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronZap) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
