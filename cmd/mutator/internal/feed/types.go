package feed

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BrokerConn is the admin surface of a broker connection used to bootstrap the topic.
type BrokerConn interface {
	Controller() (kafka.Broker, error)
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

type BrokerDialer interface {
	Dial(ctx context.Context, addr string) (BrokerConn, error)
}

type Sleeper interface {
	Sleep(d time.Duration)
}

var (
	_ MessageWriter = (*kafka.Writer)(nil)
	_ BrokerConn    = (*kafka.Conn)(nil)
	_ BrokerDialer  = TCPDialer{}
)

// TCPDialer dials brokers over TCP with a kafka.Dialer.
type TCPDialer struct {
	Dialer *kafka.Dialer
}

func (d TCPDialer) Dial(ctx context.Context, addr string) (BrokerConn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = kafka.DefaultDialer
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type WallSleeper struct{}

func (WallSleeper) Sleep(d time.Duration) { time.Sleep(d) }
