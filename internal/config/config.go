// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port   string
	DBPath string

	Origins      []string
	Destinations []string
	WeeksAhead   int

	StoreMaxPriceGBP      float64
	AlertMaxPriceGBP      float64
	PriceDropThresholdGBP float64
	AlertCooldown         time.Duration

	Concurrency          int
	WeekendTripCap       int
	BankHolidayTripCap   int
	BankHolidayRegion    string
	BankHolidayDaysAhead int

	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusBaseURL      string

	CronSecret     string
	ResendAPIKey   string
	AlertEmailTo   string
	AlertEmailFrom string
}

// Load reads the environment, applying defaults for everything optional.
func Load() *Config {
	return &Config{
		Port:   getenv("PORT", "8080"),
		DBPath: getenv("DB_PATH", "./data/deals.db"),

		Origins:      csv(getenv("ORIGINS", "MAN,LPL")),
		Destinations: csv(getenv("DESTINATIONS", "")),
		WeeksAhead:   intEnv("WEEKS_AHEAD", 4),

		StoreMaxPriceGBP:      floatEnv("STORE_MAX_PRICE_GBP", 400),
		AlertMaxPriceGBP:      floatEnv("ALERT_MAX_PRICE_GBP", 150),
		PriceDropThresholdGBP: floatEnv("PRICE_DROP_THRESHOLD_GBP", 15),
		AlertCooldown:         time.Duration(intEnv("ALERT_COOLDOWN_HOURS", 24)) * time.Hour,

		Concurrency:          intEnv("CONCURRENCY", 5),
		WeekendTripCap:       intEnv("WEEKEND_TRIP_CAP", 80),
		BankHolidayTripCap:   intEnv("BH_TRIP_CAP", 40),
		BankHolidayRegion:    getenv("BH_REGION", "england-and-wales"),
		BankHolidayDaysAhead: intEnv("BH_DAYS_AHEAD", 180),

		AmadeusClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
		AmadeusClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
		AmadeusBaseURL:      getenv("AMADEUS_BASE_URL", "https://test.api.amadeus.com"),

		CronSecret:     os.Getenv("CRON_SECRET"),
		ResendAPIKey:   os.Getenv("RESEND_API_KEY"),
		AlertEmailTo:   os.Getenv("ALERT_EMAIL_TO"),
		AlertEmailFrom: os.Getenv("ALERT_EMAIL_FROM"),
	}
}

// RequireNotify checks everything the authorized run-and-notify path needs,
// so missing settings surface before any work happens.
func (c *Config) RequireNotify() error {
	missing := []string{}
	if c.CronSecret == "" {
		missing = append(missing, "CRON_SECRET")
	}
	if c.ResendAPIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}
	if c.AlertEmailTo == "" {
		missing = append(missing, "ALERT_EMAIL_TO")
	}
	if c.AlertEmailFrom == "" {
		missing = append(missing, "ALERT_EMAIL_FROM")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func intEnv(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return def
	}
	return v
}

func floatEnv(name string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(name), 64)
	if err != nil {
		return def
	}
	return v
}

func csv(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
