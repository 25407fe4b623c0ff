// Package app wires the service together from configuration.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/misscmunoz/holiday-deals/internal/alerts"
	"github.com/misscmunoz/holiday-deals/internal/config"
	"github.com/misscmunoz/holiday-deals/internal/deals"
	handlers "github.com/misscmunoz/holiday-deals/internal/http"
	"github.com/misscmunoz/holiday-deals/internal/mailer"
	"github.com/misscmunoz/holiday-deals/internal/models"
	"github.com/misscmunoz/holiday-deals/internal/obs"
	"github.com/misscmunoz/holiday-deals/internal/providers"
	"github.com/misscmunoz/holiday-deals/internal/routes"
	"github.com/misscmunoz/holiday-deals/internal/store"
	"github.com/misscmunoz/holiday-deals/internal/trips"
)

type App struct {
	Router       http.Handler
	Orchestrator *alerts.Orchestrator
	Store        *store.Store
	Metrics      *obs.Metrics
	Logger       *slog.Logger
	Config       *config.Config
}

// New builds the full dependency graph. Without Amadeus credentials the
// flight side runs on deterministic mock providers, which is enough for
// local runs against the real detector and store.
func New(cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)

	seen, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var flights []providers.FlightProvider
	if cfg.AmadeusClientID != "" {
		flights = []providers.FlightProvider{
			providers.NewAmadeus(cfg.AmadeusBaseURL, cfg.AmadeusClientID, cfg.AmadeusClientSecret),
			providers.NewDuffel(),
		}
	} else {
		logger.Warn("AMADEUS_CLIENT_ID not set, using mock flight providers")
		flights = []providers.FlightProvider{
			providers.NewMockFlights("mock1", 0.2, 0.10, 0),
			providers.NewMockFlights("mock2", 0.15, 0.05, 1),
		}
	}

	builder := deals.NewBuilder(flights, providers.NewStubStays(), metrics, logger)
	detector := alerts.NewDetector(seen, cfg.PriceDropThresholdGBP, cfg.AlertCooldown)
	calendar := trips.NewGovUKSource()

	orchestrator := alerts.NewOrchestrator(alerts.Options{
		Origins:              cfg.Origins,
		Destinations:         cfg.Destinations,
		Categories:           []models.DealCategory{models.FlightOnly, models.FlightPlusStay},
		WeeksAhead:           cfg.WeeksAhead,
		StoreMaxPriceGBP:     cfg.StoreMaxPriceGBP,
		AlertMaxPriceGBP:     cfg.AlertMaxPriceGBP,
		Concurrency:          cfg.Concurrency,
		WeekendTripCap:       cfg.WeekendTripCap,
		BankHolidayTripCap:   cfg.BankHolidayTripCap,
		BankHolidayRegion:    cfg.BankHolidayRegion,
		BankHolidayDaysAhead: cfg.BankHolidayDaysAhead,
	}, builder, detector, calendar, metrics, logger)

	var mail mailer.Mailer
	if cfg.ResendAPIKey != "" {
		mail = mailer.NewResend(cfg.ResendAPIKey, cfg.AlertEmailTo, cfg.AlertEmailFrom)
	}

	rl := handlers.NewIPRateLimiter(10, time.Minute)
	h := handlers.NewHandler(orchestrator, mail, cfg, rl, metrics, logger)
	router := routes.GetRoutes(h, metrics, logger)

	return &App{
		Router:       router,
		Orchestrator: orchestrator,
		Store:        seen,
		Metrics:      metrics,
		Logger:       logger,
		Config:       cfg,
	}, nil
}
