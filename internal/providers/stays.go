package providers

import (
	"context"

	"github.com/misscmunoz/holiday-deals/internal/models"
)

// StubStays is the hostel-first stay source. No accommodation API is
// integrated yet, so every lookup reports no quote and FLIGHT_PLUS_STAY deals
// are skipped rather than failing the trip.
type StubStays struct{}

func NewStubStays() *StubStays { return &StubStays{} }

func (s *StubStays) Name() string { return "stub" }

func (s *StubStays) Quote(ctx context.Context, trip models.Trip) (*models.StayQuote, error) {
	return nil, nil
}
