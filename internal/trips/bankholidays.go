package trips

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// Event is a single labelled bank-holiday date.
type Event struct {
	Title string `json:"title"`
	Date  string `json:"date"` // YYYY-MM-DD
}

// Source lists bank-holiday events for a region, ordered by date.
type Source interface {
	Events(ctx context.Context, region string) ([]Event, error)
}

// Window is a suggested long-weekend trip window around one or more holidays.
// Adjacent holidays mapping to the same (region, start, end) are merged: the
// earliest date stays primary and Titles/HolidayDates carry the union.
type Window struct {
	Title        string   `json:"title"`
	HolidayDate  string   `json:"holidayDate"`
	Titles       []string `json:"titles"`
	HolidayDates []string `json:"holidayDates"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Region       string   `json:"region"`
}

// BankHolidayWindows fetches the region's holidays, keeps dates within
// [now, now+daysAhead] and suggests a trip window for each: the preceding
// Friday through the following Monday, or through the holiday itself when it
// falls on a Tuesday (Fri→Tue, 4 nights). Windows are sorted by primary
// holiday date and merged when they share identical (region, start, end).
// A source failure fails the whole call; the run cannot proceed without it.
func BankHolidayWindows(ctx context.Context, src Source, region string, daysAhead int, now time.Time) ([]Window, error) {
	events, err := src.Events(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("bank holiday source: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.AddDate(0, 0, daysAhead)

	var out []Window
	for _, ev := range events {
		d, err := time.ParseInLocation(isoDate, ev.Date, time.UTC)
		if err != nil {
			continue
		}
		if d.Before(today) || d.After(horizon) {
			continue
		}

		out = append(out, Window{
			Title:        ev.Title,
			HolidayDate:  ev.Date,
			Titles:       []string{ev.Title},
			HolidayDates: []string{ev.Date},
			StartDate:    suggestStart(d),
			EndDate:      suggestEnd(d),
			Region:       region,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].HolidayDate < out[j].HolidayDate })
	return mergeWindows(out), nil
}

// suggestStart is the Friday preceding the holiday, computed in UTC calendar
// terms. A Friday holiday starts on the holiday itself.
func suggestStart(holiday time.Time) string {
	daysSinceFriday := (int(holiday.Weekday()) + 2) % 7
	return holiday.AddDate(0, 0, -daysSinceFriday).Format(isoDate)
}

// suggestEnd is the following Monday, or the holiday itself when it falls on
// Tuesday (making a Fri→Tue window) or Monday.
func suggestEnd(holiday time.Time) string {
	if holiday.Weekday() == time.Tuesday {
		return holiday.Format(isoDate)
	}
	daysToMonday := (8 - int(holiday.Weekday())) % 7
	return holiday.AddDate(0, 0, daysToMonday).Format(isoDate)
}

// mergeWindows collapses windows sharing (region, start, end). Input must be
// sorted by holiday date so the earliest entry is seen first: its date and
// title stay primary, titles keep first-seen order, dates stay sorted.
func mergeWindows(windows []Window) []Window {
	type key struct{ region, start, end string }

	merged := make(map[key]*Window, len(windows))
	var order []key

	for _, w := range windows {
		k := key{w.Region, w.StartDate, w.EndDate}
		existing, ok := merged[k]
		if !ok {
			cp := w
			merged[k] = &cp
			order = append(order, k)
			continue
		}
		existing.Titles = appendUnique(existing.Titles, w.Titles...)
		existing.HolidayDates = appendUnique(existing.HolidayDates, w.HolidayDates...)
		sort.Strings(existing.HolidayDates)
		// earliest date wins as primary; its title comes with it
		if primary := existing.HolidayDates[0]; primary != existing.HolidayDate {
			existing.HolidayDate = primary
			existing.Title = w.Title
		}
	}

	out := make([]Window, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

// govUKDocument mirrors https://www.gov.uk/bank-holidays.json: a division
// keyed map of event lists.
type govUKDocument map[string]struct {
	Events []Event `json:"events"`
}

// GovUKSource fetches the official UK bank-holiday calendar.
type GovUKSource struct {
	BaseURL string
	Client  *http.Client
}

func NewGovUKSource() *GovUKSource {
	return &GovUKSource{
		BaseURL: "https://www.gov.uk",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GovUKSource) Events(ctx context.Context, region string) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/bank-holidays.json", nil)
	if err != nil {
		return nil, err
	}

	res, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bank holidays fetch failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("bank holidays fetch failed: %d %s", res.StatusCode, body)
	}

	var doc govUKDocument
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("bank holidays decode failed: %w", err)
	}
	return doc[region].Events, nil
}
