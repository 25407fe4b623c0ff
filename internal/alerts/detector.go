// Package alerts tracks per-trip price history and decides when a deal
// deserves a user-facing alert.
package alerts

import (
	"context"
	"time"

	"github.com/misscmunoz/holiday-deals/internal/models"
	"github.com/misscmunoz/holiday-deals/internal/store"
)

type Reason string

const (
	ReasonNewDeal   Reason = "NEW_DEAL"
	ReasonPriceDrop Reason = "PRICE_DROP"
)

// AlertItem is produced per run and never persisted.
type AlertItem struct {
	Deal    models.Observation `json:"deal"`
	Context string             `json:"context"`
	Reason  Reason             `json:"reason"`
	DropGBP float64            `json:"dropGBP,omitempty"`
	DropPct float64            `json:"dropPct,omitempty"`
}

// SeenStore is the keyed record store the detector runs against.
type SeenStore interface {
	Get(ctx context.Context, key store.Key) (*store.Record, error)
	Upsert(ctx context.Context, key store.Key, create, update store.Fields) error
}

const (
	DefaultCooldown           = 24 * time.Hour
	DefaultPriceDropThreshold = 15.0
	significantDropPct        = 0.10
)

// Detector decides NEW_DEAL / PRICE_DROP / no-alert for each observation and
// keeps the stored record current. Keys never interact, so observations for
// different keys may run concurrently.
type Detector struct {
	store        SeenStore
	thresholdGBP float64
	cooldown     time.Duration
	now          func() time.Time
}

func NewDetector(s SeenStore, thresholdGBP float64, cooldown time.Duration) *Detector {
	if thresholdGBP <= 0 {
		thresholdGBP = DefaultPriceDropThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Detector{store: s, thresholdGBP: thresholdGBP, cooldown: cooldown, now: time.Now}
}

// UpsertAndDetect records the observation under the given context and returns
// an alert when one is due, or nil.
//
// Unseen keys are created with lastAlertedAt = now and emit NEW_DEAL; the
// create is an upsert so a lost race against a concurrent run degrades to a
// plain update. Tracked keys emit PRICE_DROP only when the drop is
// significant (absolute threshold or 10%) and the cooldown since the last
// alert has elapsed; price and seen-time update regardless.
func (d *Detector) UpsertAndDetect(ctx context.Context, obs models.Observation, dealContext string) (*AlertItem, error) {
	key := store.Key{
		Context:       dealContext,
		Origin:        obs.Origin,
		Destination:   obs.Destination,
		DepartDate:    obs.DepartDate,
		ReturnDateKey: obs.ReturnDate,
	}

	existing, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	now := d.now()

	if existing == nil {
		create := store.Fields{LastPrice: obs.PriceGBP, SeenAt: now, AlertedAt: &now}
		update := store.Fields{LastPrice: obs.PriceGBP, SeenAt: now}
		if err := d.store.Upsert(ctx, key, create, update); err != nil {
			return nil, err
		}
		return &AlertItem{Deal: obs, Context: dealContext, Reason: ReasonNewDeal}, nil
	}

	drop := existing.LastPrice - obs.PriceGBP
	dropPct := 0.0
	if existing.LastPrice > 0 {
		dropPct = drop / existing.LastPrice
	}

	alertedRecently := now.Sub(existing.LastAlertedAt) < d.cooldown
	significant := drop >= d.thresholdGBP || dropPct >= significantDropPct

	if significant && !alertedRecently {
		fields := store.Fields{LastPrice: obs.PriceGBP, SeenAt: now, AlertedAt: &now}
		if err := d.store.Upsert(ctx, key, fields, fields); err != nil {
			return nil, err
		}
		return &AlertItem{
			Deal:    obs,
			Context: dealContext,
			Reason:  ReasonPriceDrop,
			DropGBP: drop,
			DropPct: dropPct,
		}, nil
	}

	// Always refresh price and seen-time; lastAlertedAt stays put.
	fields := store.Fields{LastPrice: obs.PriceGBP, SeenAt: now}
	if err := d.store.Upsert(ctx, key, fields, fields); err != nil {
		return nil, err
	}
	return nil, nil
}
