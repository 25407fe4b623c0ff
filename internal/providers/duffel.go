package providers

import (
	"context"

	"github.com/misscmunoz/holiday-deals/internal/models"
)

// Duffel is a placeholder second flight source. It reports no quotes until
// the Duffel offer-request API is wired in, which keeps the aggregator's
// multi-provider path exercised without failing trips.
type Duffel struct{}

func NewDuffel() *Duffel { return &Duffel{} }

func (d *Duffel) Name() string { return "duffel" }

func (d *Duffel) Quote(ctx context.Context, trip models.Trip) (*models.FlightQuote, error) {
	return nil, nil
}
