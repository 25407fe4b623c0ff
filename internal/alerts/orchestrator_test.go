package alerts

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/misscmunoz/holiday-deals/internal/deals"
	"github.com/misscmunoz/holiday-deals/internal/models"
	"github.com/misscmunoz/holiday-deals/internal/obs"
	"github.com/misscmunoz/holiday-deals/internal/providers"
	"github.com/misscmunoz/holiday-deals/internal/trips"
	"github.com/prometheus/client_golang/prometheus"
)

type priceByDest struct {
	name   string
	prices map[string]float64
}

func (p *priceByDest) Name() string { return p.name }
func (p *priceByDest) Quote(ctx context.Context, trip models.Trip) (*models.FlightQuote, error) {
	price, ok := p.prices[trip.Destination]
	if !ok {
		return nil, nil
	}
	return &models.FlightQuote{Provider: p.name, Price: models.Money{Amount: price, Currency: "GBP"}}, nil
}

type noStay struct{}

func (noStay) Name() string { return "stub" }
func (noStay) Quote(ctx context.Context, trip models.Trip) (*models.StayQuote, error) {
	return nil, nil
}

type calendarStub struct {
	events []trips.Event
	err    error
}

func (c *calendarStub) Events(ctx context.Context, region string) ([]trips.Event, error) {
	return c.events, c.err
}

// Tuesday 2025-04-01; next Fridays are Apr 4 and Apr 11, May Day is in range.
var runTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Origins:              []string{"MAN"},
		Destinations:         []string{"BCN"},
		Categories:           []models.DealCategory{models.FlightOnly},
		WeeksAhead:           2,
		StoreMaxPriceGBP:     400,
		AlertMaxPriceGBP:     150,
		Concurrency:          2,
		WeekendTripCap:       80,
		BankHolidayTripCap:   40,
		BankHolidayRegion:    "england-and-wales",
		BankHolidayDaysAhead: 180,
	}
}

func newTestOrchestrator(t *testing.T, opts Options, flight providers.FlightProvider, cal trips.Source, s SeenStore) *Orchestrator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	metrics := obs.NewMetrics(prometheus.NewRegistry())
	builder := deals.NewBuilder([]providers.FlightProvider{flight}, noStay{}, metrics, logger)
	detector := NewDetector(s, 15, 24*time.Hour)
	detector.now = func() time.Time { return runTime }
	o := NewOrchestrator(opts, builder, detector, cal, metrics, logger)
	o.now = func() time.Time { return runTime }
	return o
}

func mayDayCalendar() *calendarStub {
	return &calendarStub{events: []trips.Event{{Title: "Early May bank holiday", Date: "2025-05-05"}}}
}

func TestRunFirstPassEmitsNewDeals(t *testing.T) {
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 100}}
	o := newTestOrchestrator(t, testOptions(), flight, mayDayCalendar(), newMemStore())

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sum.CheckedTrips.Weekend != 2 {
		t.Fatalf("expected 2 weekend trips, got %d", sum.CheckedTrips.Weekend)
	}
	if sum.CheckedTrips.BankHolidayWindows != 1 || sum.CheckedTrips.BankHolidayTrips != 1 {
		t.Fatalf("expected 1 window / 1 bh trip, got %+v", sum.CheckedTrips)
	}
	if sum.Alerts.TotalDetected != 3 || sum.Alerts.Actionable != 3 || sum.Alerts.SuppressedByBudget != 0 {
		t.Fatalf("unexpected alert stats %+v", sum.Alerts)
	}
	if sum.CheckedTrips.WeekendByCategory["FLIGHT_ONLY"] != 2 {
		t.Fatalf("unexpected weekend breakdown %+v", sum.CheckedTrips.WeekendByCategory)
	}
	for _, a := range sum.AlertsSample {
		if a.Reason != ReasonNewDeal {
			t.Fatalf("first pass must emit NEW_DEAL only, got %+v", a)
		}
	}
}

func TestRunContextsDistinguishWeekendFromBankHoliday(t *testing.T) {
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 100}}
	s := newMemStore()
	o := newTestOrchestrator(t, testOptions(), flight, mayDayCalendar(), s)

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contexts := map[string]int{}
	for _, a := range sum.AlertsSample {
		contexts[a.Context]++
	}
	if contexts["regular:FLIGHT_ONLY"] != 2 {
		t.Fatalf("expected 2 regular alerts, got %+v", contexts)
	}
	if contexts["bh:2025-05-05:FLIGHT_ONLY"] != 1 {
		t.Fatalf("expected bank-holiday context tagged with the holiday date, got %+v", contexts)
	}
}

func TestRunSuppressesOverBudgetAlerts(t *testing.T) {
	// within the store cap but above the alert budget
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 200}}
	o := newTestOrchestrator(t, testOptions(), flight, mayDayCalendar(), newMemStore())

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Alerts.TotalDetected != 3 || sum.Alerts.Actionable != 0 || sum.Alerts.SuppressedByBudget != 3 {
		t.Fatalf("unexpected alert stats %+v", sum.Alerts)
	}
	if len(sum.AlertsSample) != 0 {
		t.Fatalf("suppressed alerts must not appear in the sample, got %+v", sum.AlertsSample)
	}
}

func TestRunSortsActionableByPrice(t *testing.T) {
	opts := testOptions()
	opts.Destinations = []string{"AMS", "BCN"}
	opts.WeeksAhead = 1
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"AMS": 120, "BCN": 80}}
	o := newTestOrchestrator(t, opts, flight, mayDayCalendar(), newMemStore())

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.AlertsSample) < 2 {
		t.Fatalf("expected multiple alerts, got %+v", sum.AlertsSample)
	}
	for i := 1; i < len(sum.AlertsSample); i++ {
		if sum.AlertsSample[i].Deal.PriceGBP < sum.AlertsSample[i-1].Deal.PriceGBP {
			t.Fatalf("sample not sorted ascending: %+v", sum.AlertsSample)
		}
	}
}

func TestRunExcludesSelfPairsForBankHolidays(t *testing.T) {
	opts := testOptions()
	opts.Destinations = []string{"MAN", "BCN"} // MAN->MAN must be skipped
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"MAN": 60, "BCN": 100}}
	o := newTestOrchestrator(t, opts, flight, mayDayCalendar(), newMemStore())

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.CheckedTrips.BankHolidayTrips != 1 {
		t.Fatalf("expected self-pair excluded, got %d bh trips", sum.CheckedTrips.BankHolidayTrips)
	}
}

func TestRunCapsTripCounts(t *testing.T) {
	opts := testOptions()
	opts.WeeksAhead = 8
	opts.WeekendTripCap = 3
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 100}}
	o := newTestOrchestrator(t, opts, flight, mayDayCalendar(), newMemStore())

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.CheckedTrips.Weekend != 3 {
		t.Fatalf("expected weekend cap applied, got %d", sum.CheckedTrips.Weekend)
	}
}

func TestRunCalendarFailureIsFatal(t *testing.T) {
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 100}}
	cal := &calendarStub{err: errors.New("gov.uk unreachable")}
	o := newTestOrchestrator(t, testOptions(), flight, cal, newMemStore())

	if _, err := o.Run(context.Background()); err == nil {
		t.Fatal("expected calendar failure to fail the run")
	}
}

func TestRunCountsStoreErrorsWithoutAborting(t *testing.T) {
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 100}}
	s := newMemStore()
	s.upsertErr = errors.New("disk full")
	o := newTestOrchestrator(t, testOptions(), flight, mayDayCalendar(), s)

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("store errors must not fail the run: %v", err)
	}
	if sum.Alerts.StoreErrors != 3 {
		t.Fatalf("expected 3 store errors surfaced, got %+v", sum.Alerts)
	}
	if sum.Alerts.TotalDetected != 0 {
		t.Fatalf("failed deals must not count as alerts, got %+v", sum.Alerts)
	}
}

func TestRunSecondPassQuietWhenPricesStable(t *testing.T) {
	flight := &priceByDest{name: "amadeus", prices: map[string]float64{"BCN": 100}}
	s := newMemStore()
	o := newTestOrchestrator(t, testOptions(), flight, mayDayCalendar(), s)
	ctx := context.Background()

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	sum, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.Alerts.TotalDetected != 0 {
		t.Fatalf("stable prices must not re-alert, got %+v", sum.Alerts)
	}
}
