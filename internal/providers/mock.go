package providers

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/misscmunoz/holiday-deals/internal/models"
)

// MockFlights simulates a flight source with variable latency and a
// configurable failure rate. It backs local runs when no real provider
// credentials are configured.
type MockFlights struct {
	name       string
	avgLatency float64
	failRate   float64
	rng        *rand.Rand
}

func NewMockFlights(name string, avgLatency, failRate float64, seed int64) *MockFlights {
	return &MockFlights{name: name, avgLatency: avgLatency, failRate: failRate, rng: rand.New(rand.NewSource(seed))}
}

func (m *MockFlights) Name() string { return m.name }

func (m *MockFlights) Quote(ctx context.Context, trip models.Trip) (*models.FlightQuote, error) {
	select {
	case <-time.After(SampleLatencyFromRng(m.rng, m.avgLatency)):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if ShouldFailFromRng(m.rng, m.failRate) {
		return nil, errors.New("provider error (simulated)")
	}

	// rough route-dependent base so different trips get different prices
	base := 40.0 + float64(len(trip.Origin)+len(trip.Destination))*7.5
	price := base + float64(m.rng.Intn(120))

	return &models.FlightQuote{
		Provider: m.name,
		Price:    models.Money{Amount: price, Currency: "GBP"},
	}, nil
}

func SampleLatencyFromRng(rng *rand.Rand, avg float64) time.Duration {
	ms := float64(5) + rng.ExpFloat64()*avg*100.0
	return time.Duration(ms) * time.Millisecond
}

func ShouldFailFromRng(rng *rand.Rand, rate float64) bool {
	return rng.Float64() < rate
}
