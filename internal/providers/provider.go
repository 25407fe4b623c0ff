// Package providers contains the price sources the aggregator queries.
package providers

import (
	"context"

	"github.com/misscmunoz/holiday-deals/internal/models"
)

// FlightProvider returns the cheapest flight quote for a trip, or nil when no
// offer is available. Errors degrade to "no quote" at the aggregation layer.
type FlightProvider interface {
	Quote(ctx context.Context, trip models.Trip) (*models.FlightQuote, error)
	Name() string
}

// StayProvider returns the cheapest stay quote for a trip's dates, or nil.
type StayProvider interface {
	Quote(ctx context.Context, trip models.Trip) (*models.StayQuote, error)
	Name() string
}
