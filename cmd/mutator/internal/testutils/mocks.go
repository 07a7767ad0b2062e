package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/segmentio/kafka-go"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/cmd/mutator/internal/feed"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/store"
)

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time        { return m.CurrentTime }
func (m *MockClock) Sleep(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }

type MockRand struct {
	ValFloat float64
}

func (m *MockRand) Float64() float64 { return m.ValFloat }

// SeqRand replays Vals in order and then repeats the last one.
type SeqRand struct {
	Vals []float64
	i    int
}

func (s *SeqRand) Float64() float64 {
	v := s.Vals[s.i]
	if s.i < len(s.Vals)-1 {
		s.i++
	}
	return v
}

type MockFlusher struct {
	Result bool
	Calls  int
}

func (m *MockFlusher) Flush(ctx context.Context) bool {
	m.Calls++
	return m.Result
}

type MockPublisher struct {
	Records    []models.StockRecord
	ShouldFail bool
}

func (m *MockPublisher) Publish(ctx context.Context, rec models.StockRecord) error {
	if m.ShouldFail {
		return errors.New("broker unavailable")
	}
	m.Records = append(m.Records, rec)
	return nil
}

// FlakyStore wraps a real store and fails chosen symbols on demand.
type FlakyStore struct {
	store.VersionedStore
	QueryErr map[string]error
	PutErr   map[string]error
	Puts     []models.StockRecord
}

func NewFlakyStore(inner store.VersionedStore) *FlakyStore {
	return &FlakyStore{
		VersionedStore: inner,
		QueryErr:       make(map[string]error),
		PutErr:         make(map[string]error),
	}
}

func (f *FlakyStore) QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error) {
	if err := f.QueryErr[symbol]; err != nil {
		return nil, err
	}
	return f.VersionedStore.QueryLatest(ctx, symbol)
}

func (f *FlakyStore) Put(ctx context.Context, rec models.StockRecord) error {
	if err := f.PutErr[rec.Symbol]; err != nil {
		return err
	}
	f.Puts = append(f.Puts, rec)
	return f.VersionedStore.Put(ctx, rec)
}

type MockStageCacheAPI struct {
	Inputs []*apigateway.FlushStageCacheInput
	Err    error
}

func (m *MockStageCacheAPI) FlushStageCache(ctx context.Context, in *apigateway.FlushStageCacheInput, _ ...func(*apigateway.Options)) (*apigateway.FlushStageCacheOutput, error) {
	m.Inputs = append(m.Inputs, in)
	if m.Err != nil {
		return nil, m.Err
	}
	return &apigateway.FlushStageCacheOutput{}, nil
}

type MockMessageWriter struct {
	Messages   []kafka.Message
	mu         sync.Mutex
	ShouldFail bool
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockMessageWriter) Close() error { return nil }

// MockBrokerConn acts as both the bootstrap broker and the controller.
type MockBrokerConn struct {
	CreatedTopics  []kafka.TopicConfig
	NoPartitions   bool
	PartitionReads int
}

func (m *MockBrokerConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "controller", Port: 9092}, nil
}

func (m *MockBrokerConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.CreatedTopics = append(m.CreatedTopics, topics...)
	return nil
}

func (m *MockBrokerConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	m.PartitionReads++
	if m.NoPartitions {
		return nil, nil
	}
	return []kafka.Partition{{Topic: topics[0], ID: 0}}, nil
}

func (m *MockBrokerConn) Close() error { return nil }

type MockBrokerDialer struct {
	Conn       *MockBrokerConn
	Dialed     []string
	ShouldFail bool
}

func (m *MockBrokerDialer) Dial(ctx context.Context, addr string) (feed.BrokerConn, error) {
	m.Dialed = append(m.Dialed, addr)
	if m.ShouldFail {
		return nil, errors.New("connection refused")
	}
	if m.Conn == nil {
		m.Conn = &MockBrokerConn{}
	}
	return m.Conn, nil
}
