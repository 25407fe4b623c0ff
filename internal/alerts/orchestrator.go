package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/misscmunoz/holiday-deals/internal/deals"
	"github.com/misscmunoz/holiday-deals/internal/models"
	"github.com/misscmunoz/holiday-deals/internal/obs"
	"github.com/misscmunoz/holiday-deals/internal/pool"
	"github.com/misscmunoz/holiday-deals/internal/trips"
)

// Options tune one monitoring pass.
type Options struct {
	Origins      []string
	Destinations []string
	Categories   []models.DealCategory

	WeeksAhead            int
	StoreMaxPriceGBP      float64
	AlertMaxPriceGBP      float64
	Concurrency           int
	WeekendTripCap        int
	BankHolidayTripCap    int
	BankHolidayRegion     string
	BankHolidayDaysAhead  int
	BankHolidayWindowCap  int
	ActionableSampleLimit int
}

type Thresholds struct {
	StoreMaxGBP           float64 `json:"storeMaxGBP"`
	AlertMaxGBP           float64 `json:"alertMaxGBP"`
	PriceDropThresholdGBP float64 `json:"priceDropThresholdGBP"`
}

type CheckedTrips struct {
	Weekend               int            `json:"weekend"`
	WeekendByCategory     map[string]int `json:"weekendByCategory"`
	BankHolidayTrips      int            `json:"bankHolidayTrips"`
	BankHolidayWindows    int            `json:"bankHolidayWindows"`
	BankHolidayByCategory map[string]int `json:"bankHolidayByCategory"`
}

type AlertStats struct {
	TotalDetected      int `json:"totalDetected"`
	Actionable         int `json:"actionable"`
	SuppressedByBudget int `json:"suppressedByBudget"`
	StoreErrors        int `json:"storeErrors"`
}

// Summary is the result of one pass.
type Summary struct {
	Origins      []string              `json:"origins"`
	Destinations int                   `json:"destinations"`
	Categories   []models.DealCategory `json:"categories"`
	Thresholds   Thresholds            `json:"thresholds"`
	CheckedTrips CheckedTrips          `json:"checkedTrips"`
	Alerts       AlertStats            `json:"alerts"`
	AlertsSample []AlertItem           `json:"alertsSample"`
	Note         string                `json:"note"`
}

// Orchestrator drives one monitoring pass: generate candidate trips, build
// deals under bounded concurrency, feed each through the detector and report
// the aggregate.
type Orchestrator struct {
	opts     Options
	builder  *deals.Builder
	detector *Detector
	calendar trips.Source
	metrics  *obs.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrchestrator(opts Options, builder *deals.Builder, detector *Detector, calendar trips.Source, m *obs.Metrics, logger *slog.Logger) *Orchestrator {
	if opts.BankHolidayWindowCap <= 0 {
		opts.BankHolidayWindowCap = 3
	}
	if opts.ActionableSampleLimit <= 0 {
		opts.ActionableSampleLimit = 10
	}
	return &Orchestrator{
		opts:     opts,
		builder:  builder,
		detector: detector,
		calendar: calendar,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// tally accumulates alert bookkeeping across both trip phases.
type tally struct {
	all         []AlertItem
	actionable  []AlertItem
	suppressed  int
	storeErrors int
}

// Run executes one monitoring pass. A calendar failure is fatal; store
// failures skip the affected deal and are counted, never silently dropped.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	o.metrics.IncRuns()
	now := o.now()

	var t tally

	// 1) regular weekends (Fri -> Sun)
	weekendTrips := trips.WeekendTrips(o.opts.Origins, o.opts.Destinations, o.opts.WeeksAhead, 1, now)
	if len(weekendTrips) > o.opts.WeekendTripCap {
		weekendTrips = weekendTrips[:o.opts.WeekendTripCap]
	}

	weekendBatches := pool.Run(ctx, o.opts.Concurrency, weekendTrips,
		func(ctx context.Context, trip models.Trip) ([]models.Deal, error) {
			return o.builder.BuildForTrip(ctx, trip, o.opts.Categories, o.opts.StoreMaxPriceGBP), nil
		})

	weekendByCategory := map[string]int{}
	for _, batch := range weekendBatches {
		for _, deal := range batch {
			weekendByCategory[string(deal.Category)]++
			o.processDeal(ctx, deal, fmt.Sprintf("regular:%s", deal.Category), &t)
		}
	}

	// 2) bank holiday windows (dedupe by start/end)
	windows, err := trips.BankHolidayWindows(ctx, o.calendar, o.opts.BankHolidayRegion, o.opts.BankHolidayDaysAhead, now)
	if err != nil {
		o.metrics.IncRunFailures()
		return nil, fmt.Errorf("bank holiday windows: %w", err)
	}
	if len(windows) > o.opts.BankHolidayWindowCap {
		windows = windows[:o.opts.BankHolidayWindowCap]
	}

	type bhItem struct {
		trip          models.Trip
		contextPrefix string
	}
	var bhItems []bhItem
	for _, w := range windows {
		for _, origin := range o.opts.Origins {
			for _, destination := range o.opts.Destinations {
				if origin == destination {
					continue
				}
				bhItems = append(bhItems, bhItem{
					trip: models.Trip{
						Origin:      origin,
						Destination: destination,
						DepartDate:  w.StartDate,
						ReturnDate:  w.EndDate,
						Adults:      1,
					},
					contextPrefix: fmt.Sprintf("bh:%s", w.HolidayDate),
				})
			}
		}
	}
	if len(bhItems) > o.opts.BankHolidayTripCap {
		bhItems = bhItems[:o.opts.BankHolidayTripCap]
	}

	type bhBatch struct {
		deals         []models.Deal
		contextPrefix string
	}
	bhBatches := pool.Run(ctx, o.opts.Concurrency, bhItems,
		func(ctx context.Context, item bhItem) (bhBatch, error) {
			ds := o.builder.BuildForTrip(ctx, item.trip, o.opts.Categories, o.opts.StoreMaxPriceGBP)
			return bhBatch{deals: ds, contextPrefix: item.contextPrefix}, nil
		})

	bankHolidayByCategory := map[string]int{}
	for _, batch := range bhBatches {
		for _, deal := range batch.deals {
			bankHolidayByCategory[string(deal.Category)]++
			o.processDeal(ctx, deal, fmt.Sprintf("%s:%s", batch.contextPrefix, deal.Category), &t)
		}
	}

	// cheapest first in the response
	sort.SliceStable(t.actionable, func(i, j int) bool {
		return t.actionable[i].Deal.PriceGBP < t.actionable[j].Deal.PriceGBP
	})

	sample := t.actionable
	if len(sample) > o.opts.ActionableSampleLimit {
		sample = sample[:o.opts.ActionableSampleLimit]
	}

	return &Summary{
		Origins:      o.opts.Origins,
		Destinations: len(o.opts.Destinations),
		Categories:   o.opts.Categories,
		Thresholds: Thresholds{
			StoreMaxGBP:           o.opts.StoreMaxPriceGBP,
			AlertMaxGBP:           o.opts.AlertMaxPriceGBP,
			PriceDropThresholdGBP: o.detector.thresholdGBP,
		},
		CheckedTrips: CheckedTrips{
			Weekend:               len(weekendTrips),
			WeekendByCategory:     weekendByCategory,
			BankHolidayTrips:      len(bhItems),
			BankHolidayWindows:    len(windows),
			BankHolidayByCategory: bankHolidayByCategory,
		},
		Alerts: AlertStats{
			TotalDetected:      len(t.all),
			Actionable:         len(t.actionable),
			SuppressedByBudget: t.suppressed,
			StoreErrors:        t.storeErrors,
		},
		AlertsSample: sample,
		Note:         "All price changes are tracked; only deals within the alert budget are considered actionable (email-worthy). Stays still stubbed.",
	}, nil
}

func (o *Orchestrator) processDeal(ctx context.Context, deal models.Deal, dealContext string, t *tally) {
	view := deal.Observation()

	alert, err := o.detector.UpsertAndDetect(ctx, view, dealContext)
	if err != nil {
		t.storeErrors++
		o.metrics.IncStoreErrors()
		o.logger.Error("record store failed for deal",
			"context", dealContext,
			"origin", view.Origin,
			"destination", view.Destination,
			"error", err,
		)
		return
	}
	if alert == nil {
		return
	}

	o.metrics.IncAlerts(string(alert.Reason))
	t.all = append(t.all, *alert)
	if view.PriceGBP <= o.opts.AlertMaxPriceGBP {
		t.actionable = append(t.actionable, *alert)
	} else {
		t.suppressed++
	}
}
