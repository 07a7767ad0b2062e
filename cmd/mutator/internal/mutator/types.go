package mutator

import (
	"context"
	"math/rand"
	"time"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
}

// for deterministic values
type Rand interface {
	Float64() float64
}

// Flusher invalidates the cache in front of the reader. It reports success
// instead of returning an error because a failed flush never fails a run.
type Flusher interface {
	Flush(ctx context.Context) bool
}

// Publisher emits an appended record to the price feed.
type Publisher interface {
	Publish(ctx context.Context, rec models.StockRecord) error
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type RealRand struct{ *rand.Rand }

func NewRealRand() RealRand {
	return RealRand{rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r RealRand) Float64() float64 { return r.Rand.Float64() }
