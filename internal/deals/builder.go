// Package deals builds priced deals for candidate trips from the configured
// providers.
package deals

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/misscmunoz/holiday-deals/internal/models"
	"github.com/misscmunoz/holiday-deals/internal/obs"
	"github.com/misscmunoz/holiday-deals/internal/providers"
)

// Builder queries every flight provider for a trip in parallel, keeps the
// cheapest successful quote and assembles deals per requested category under
// a total-price cap.
type Builder struct {
	flights []providers.FlightProvider
	stays   providers.StayProvider
	metrics *obs.Metrics
	logger  *slog.Logger
}

func NewBuilder(flights []providers.FlightProvider, stays providers.StayProvider, m *obs.Metrics, logger *slog.Logger) *Builder {
	return &Builder{flights: flights, stays: stays, metrics: m, logger: logger}
}

// bestFlight fans out to all flight providers at once. A provider error or
// nil quote counts as "no quote" and never aborts the trip. Selection is
// deterministic regardless of completion order: lowest price wins, ties
// break on provider name.
func (b *Builder) bestFlight(ctx context.Context, trip models.Trip) *models.FlightQuote {
	quotes := make([]*models.FlightQuote, len(b.flights))

	var wg sync.WaitGroup
	for i, p := range b.flights {
		wg.Add(1)
		go func(i int, p providers.FlightProvider) {
			defer wg.Done()
			start := time.Now()
			q, err := p.Quote(ctx, trip)
			b.metrics.ObserveProviderLatency(p.Name(), time.Since(start).Seconds())
			if err != nil {
				b.metrics.IncProviderFailure(p.Name())
				b.logger.Warn("flight provider failed",
					"provider", p.Name(),
					"origin", trip.Origin,
					"destination", trip.Destination,
					"departDate", trip.DepartDate,
					"error", err,
				)
				return
			}
			quotes[i] = q
		}(i, p)
	}
	wg.Wait()

	var best *models.FlightQuote
	for _, q := range quotes {
		if q == nil {
			continue
		}
		if best == nil ||
			q.Price.Amount < best.Price.Amount ||
			(q.Price.Amount == best.Price.Amount && q.Provider < best.Provider) {
			best = q
		}
	}
	return best
}

// BuildForTrip returns zero, one or two deals for the trip. The cap applies
// per category independently: FLIGHT_ONLY checks the flight price alone,
// FLIGHT_PLUS_STAY checks flight plus stay.
func (b *Builder) BuildForTrip(ctx context.Context, trip models.Trip, categories []models.DealCategory, maxTotalGBP float64) []models.Deal {
	flight := b.bestFlight(ctx, trip)
	if flight == nil {
		return nil
	}

	var deals []models.Deal

	if hasCategory(categories, models.FlightOnly) && flight.Price.Amount <= maxTotalGBP {
		deals = append(deals, models.Deal{
			Category: models.FlightOnly,
			Trip:     trip,
			Flight:   *flight,
			Total:    flight.Price,
		})
	}

	if hasCategory(categories, models.FlightPlusStay) {
		stay, err := b.stays.Quote(ctx, trip)
		if err != nil {
			b.metrics.IncProviderFailure(b.stays.Name())
			b.logger.Warn("stay provider failed", "provider", b.stays.Name(), "error", err)
			stay = nil
		}
		if stay != nil {
			total := flight.Price.Amount + stay.Total.Amount
			if total <= maxTotalGBP {
				deal := models.Deal{
					Category: models.FlightPlusStay,
					Trip:     trip,
					Flight:   *flight,
					Stay:     stay,
					Total:    models.Money{Amount: total, Currency: "GBP"},
				}
				if stay.StayType == models.StayHostel {
					deal.Notes = []string{"hostel-first"}
				}
				deals = append(deals, deal)
			}
		}
	}

	return deals
}

func hasCategory(categories []models.DealCategory, c models.DealCategory) bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}
