// Package trips generates candidate trip windows: recurring Fri→Sun weekends
// and long weekends around UK bank holidays.
package trips

import (
	"time"

	"github.com/misscmunoz/holiday-deals/internal/models"
)

const isoDate = "2006-01-02"

// NextFridays returns the next n upcoming Fridays as YYYY-MM-DD strings.
// When from is itself a Friday the first entry is the following Friday.
func NextFridays(n int, from time.Time) []string {
	days := (int(time.Friday) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	first := from.AddDate(0, 0, days)

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, first.AddDate(0, 0, i*7).Format(isoDate))
	}
	return out
}

// AddDays shifts an ISO date by the given number of days.
func AddDays(iso string, days int) string {
	d, err := time.ParseInLocation(isoDate, iso, time.UTC)
	if err != nil {
		return iso
	}
	return d.AddDate(0, 0, days).Format(isoDate)
}

// WeekendTrips emits one Fri→Sun trip per (origin, destination) pair for each
// of the next weeksAhead Fridays after from. Ordering is deterministic:
// origin-major, destination-minor, date-minor.
func WeekendTrips(origins, destinations []string, weeksAhead, adults int, from time.Time) []models.Trip {
	if adults < 1 {
		adults = 1
	}
	fridays := NextFridays(weeksAhead, from)

	trips := make([]models.Trip, 0, len(origins)*len(destinations)*len(fridays))
	for _, origin := range origins {
		for _, destination := range destinations {
			for _, fri := range fridays {
				trips = append(trips, models.Trip{
					Origin:      origin,
					Destination: destination,
					DepartDate:  fri,
					ReturnDate:  AddDays(fri, 2),
					Adults:      adults,
				})
			}
		}
	}
	return trips
}
