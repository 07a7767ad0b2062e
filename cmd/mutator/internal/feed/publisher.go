// Package feed publishes appended price versions to a Kafka topic keyed by symbol.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// NewKafkaWriter writes synchronously: a Lambda invocation may freeze as
// soon as it returns, so nothing can be left in an async buffer.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    10,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *Publisher) Publish(ctx context.Context, rec models.StockRecord) error {
	payload, err := json.Marshal(rec.Update())
	if err != nil {
		return fmt.Errorf("encode update for %s: %w", rec.Symbol, err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Symbol), // Key keeps a symbol on one partition
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
