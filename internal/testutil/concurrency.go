package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It registers a "sleep" function that records when each call ran.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Record returns the execution record for id, if any.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.ExecutionTimes[id]
	return rec, ok
}

// Register registers the "sleep" function. It takes an id, sleeps, and
// returns the id. The sleep ends early when the context is cancelled.
func (m *MockSleeperModule) Register(ns *namespace.Namespace) error {
	return ns.Register("sleep", namespace.Function{
		Signature: namespace.Signature{
			Params:  []namespace.Param{{Name: "id", Type: cty.String}},
			Returns: cty.String,
		},
		Impl: func(ctx context.Context, args *namespace.Args) (cty.Value, error) {
			id, err := args.String("id")
			if err != nil {
				return cty.NilVal, err
			}

			startTime := time.Now()
			select {
			case <-time.After(m.sleepDuration):
			case <-ctx.Done():
				return cty.NilVal, ctx.Err()
			}
			endTime := time.Now()

			m.mu.Lock()
			m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
			m.mu.Unlock()

			if m.completionChan != nil {
				m.completionChan <- id
			}
			return cty.StringVal(id), nil
		},
	})
}
