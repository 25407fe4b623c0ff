package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/misscmunoz/holiday-deals/internal/models"
)

// tokenExpiryBuffer keeps us from sending a token that is about to expire.
const tokenExpiryBuffer = 30 * time.Second

// transientRetryDelay is the pause before the single retry on a 5xx.
const transientRetryDelay = 400 * time.Millisecond

// Amadeus queries the Amadeus flight-offers API. OAuth tokens are cached with
// at most one refresh in flight; concurrent callers wait for the pending
// refresh instead of starting their own.
type Amadeus struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	pending   chan struct{} // non-nil while a refresh is in flight
	lastErr   error
}

func NewAmadeus(baseURL, clientID, clientSecret string) *Amadeus {
	if baseURL == "" {
		baseURL = "https://test.api.amadeus.com"
	}
	return &Amadeus{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 20 * time.Second},
		now:          time.Now,
	}
}

func (a *Amadeus) Name() string { return "amadeus" }

type flightOffersResponse struct {
	Data []struct {
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"data"`
}

// Quote returns the cheapest GBP offer for the trip, or nil when Amadeus has
// no offers for the route and dates.
func (a *Amadeus) Quote(ctx context.Context, trip models.Trip) (*models.FlightQuote, error) {
	params := url.Values{}
	params.Set("originLocationCode", trip.Origin)
	params.Set("destinationLocationCode", trip.Destination)
	params.Set("departureDate", trip.DepartDate)
	if trip.ReturnDate != "" {
		params.Set("returnDate", trip.ReturnDate)
	}
	params.Set("adults", strconv.Itoa(max(trip.Adults, 1)))
	params.Set("currencyCode", "GBP")
	params.Set("max", "10")
	params.Set("nonStop", "false")

	var res flightOffersResponse
	if err := a.get(ctx, "/v2/shopping/flight-offers", params, &res); err != nil {
		return nil, err
	}

	best := 0.0
	found := false
	for _, offer := range res.Data {
		p, err := strconv.ParseFloat(offer.Price.Total, 64)
		if err != nil {
			continue
		}
		if !found || p < best {
			best = p
			found = true
		}
	}
	if !found {
		return nil, nil
	}

	return &models.FlightQuote{
		Provider: a.Name(),
		Price:    models.Money{Amount: best, Currency: "GBP"},
	}, nil
}

// statusError carries the upstream status so get can decide on a retry.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("amadeus: status %d: %s", e.Status, e.Body)
}

// get performs one authenticated GET with a single opportunistic retry: once
// on 401 after invalidating the cached token, once on a transient 5xx after a
// short pause. Anything else surfaces as-is.
func (a *Amadeus) get(ctx context.Context, path string, params url.Values, out any) error {
	err := a.getOnce(ctx, path, params, out)
	if err == nil {
		return nil
	}

	var se *statusError
	if !errors.As(err, &se) {
		return err
	}

	switch se.Status {
	case http.StatusUnauthorized:
		a.invalidateToken()
		return a.getOnce(ctx, path, params, out)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		select {
		case <-time.After(transientRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		return a.getOnce(ctx, path, params, out)
	}
	return err
}

func (a *Amadeus) getOnce(ctx context.Context, path string, params url.Values, out any) error {
	token, err := a.validToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("amadeus GET %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &statusError{Status: res.StatusCode, Body: string(body)}
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (a *Amadeus) invalidateToken() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

// validToken returns the cached token while it has more than the expiry
// buffer left, otherwise refreshes it. Only one refresh runs at a time;
// other callers block on the pending channel and reuse its outcome.
func (a *Amadeus) validToken(ctx context.Context) (string, error) {
	for {
		a.mu.Lock()
		if a.token != "" && a.expiresAt.After(a.now().Add(tokenExpiryBuffer)) {
			token := a.token
			a.mu.Unlock()
			return token, nil
		}
		if a.pending != nil {
			wait := a.pending
			a.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			a.mu.Lock()
			token, err := a.token, a.lastErr
			a.mu.Unlock()
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
			continue
		}

		done := make(chan struct{})
		a.pending = done
		a.mu.Unlock()

		token, expiresAt, err := a.fetchToken(ctx)

		a.mu.Lock()
		if err == nil {
			a.token = token
			a.expiresAt = expiresAt
		}
		a.lastErr = err
		a.pending = nil
		a.mu.Unlock()
		close(done)

		return token, err
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (a *Amadeus) fetchToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := a.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("amadeus token fetch: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", time.Time{}, fmt.Errorf("amadeus token fetch: status %d: %s", res.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("amadeus token decode: %w", err)
	}
	return tr.AccessToken, a.now().Add(time.Duration(tr.ExpiresIn) * time.Second), nil
}
