package feed

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicCreator struct {
	logger     *zap.Logger
	dialer     BrokerDialer
	sleeper    Sleeper
	partitions int
}

func NewTopicCreator(logger *zap.Logger, dialer BrokerDialer, sleeper Sleeper) *TopicCreator {
	return &TopicCreator{
		logger:     logger,
		dialer:     dialer,
		sleeper:    sleeper,
		partitions: 4,
	}
}

// Ensure creates topicName through the cluster controller and waits briefly
// for its partitions. Failures are logged; the publisher reports its own.
func (tc *TopicCreator) Ensure(ctx context.Context, brokers []string, topicName string) bool {
	var conn BrokerConn
	var err error

	for _, addr := range brokers {
		conn, err = tc.dialer.Dial(ctx, addr)
		if err == nil {
			break
		}
	}
	if conn == nil {
		tc.logger.Warn("Failed to dial brokers", zap.Error(err))
		return false
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		tc.logger.Warn("Failed to get controller", zap.Error(err))
		return false
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.Dial(ctx, controllerAddr)
	if err != nil {
		tc.logger.Warn("Failed to dial controller", zap.Error(err))
		return false
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     tc.partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		tc.logger.Info("Topic creation finished (might already exist)", zap.Error(err))
	}

	return tc.waitForTopic(conn, topicName)
}

func (tc *TopicCreator) waitForTopic(conn BrokerConn, topicName string) bool {
	for i := 0; i < 5; i++ {
		partitions, err := conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Topic ready", zap.String("topic", topicName), zap.Int("partitions", len(partitions)))
			return true
		}
		tc.sleeper.Sleep(200 * time.Millisecond)
	}
	tc.logger.Warn("Timed out waiting for topic", zap.String("topic", topicName))
	return false
}
