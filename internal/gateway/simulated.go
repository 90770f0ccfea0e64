// internal/gateway/simulated.go
package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulated is a failure-injection gateway for development and tests. Accept
// and delivery outcomes are drawn from a configurable random source so tests
// can seed it deterministically.
type Simulated struct {
	mu           sync.Mutex
	rng          *rand.Rand
	acceptRate   float64
	deliveryRate float64
	maxLatency   time.Duration
}

func NewSimulated(acceptRate, deliveryRate float64, maxLatency time.Duration) *Simulated {
	return NewSimulatedWithSeed(acceptRate, deliveryRate, maxLatency, time.Now().UnixNano())
}

// NewSimulatedWithSeed fixes the random source, making every accept/deliver
// decision reproducible.
func NewSimulatedWithSeed(acceptRate, deliveryRate float64, maxLatency time.Duration, seed int64) *Simulated {
	return &Simulated{
		rng:          rand.New(rand.NewSource(seed)),
		acceptRate:   acceptRate,
		deliveryRate: deliveryRate,
		maxLatency:   maxLatency,
	}
}

func (g *Simulated) SendRaw(ctx context.Context, recipient, body string) (Result, error) {
	if recipient == "" {
		return Result{Accepted: false, Reason: "empty recipient"}, nil
	}

	g.mu.Lock()
	accepted := g.rng.Float64() < g.acceptRate
	g.mu.Unlock()

	if !accepted {
		return Result{Accepted: false, Reason: "provider rejected message"}, nil
	}
	return Result{Accepted: true, GatewayRef: fmt.Sprintf("sim-%s", uuid.New().String())}, nil
}

// ResolveDelivery blocks for a random slice of the configured latency, then
// reports delivery per the configured rate. Cancellation wins over latency.
func (g *Simulated) ResolveDelivery(ctx context.Context, gatewayRef string) (bool, string, error) {
	g.mu.Lock()
	delay := time.Duration(0)
	if g.maxLatency > 0 {
		delay = time.Duration(g.rng.Int63n(int64(g.maxLatency)))
	}
	delivered := g.rng.Float64() < g.deliveryRate
	g.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, "", ctx.Err()
		case <-timer.C:
		}
	}

	if !delivered {
		return false, "handset unreachable", nil
	}
	return true, "", nil
}
