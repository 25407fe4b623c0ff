package models

// DealCategory selects which deal shapes a run should produce.
type DealCategory string

const (
	FlightOnly     DealCategory = "FLIGHT_ONLY"
	FlightPlusStay DealCategory = "FLIGHT_PLUS_STAY"
)

// Trip is a candidate travel window. ReturnDate is empty for one-way trips.
type Trip struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepartDate  string `json:"departDate"` // YYYY-MM-DD
	ReturnDate  string `json:"returnDate,omitempty"`
	Adults      int    `json:"adults"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type FlightQuote struct {
	Provider string `json:"provider"`
	Price    Money  `json:"price"`
	Deeplink string `json:"deeplink,omitempty"`
}

type StayType string

const (
	StayHostel StayType = "hostel"
	StayHotel  StayType = "hotel"
)

type StayQuote struct {
	Provider string   `json:"provider"`
	StayType StayType `json:"stayType"`
	Total    Money    `json:"total"` // total for the entire stay
	Name     string   `json:"name,omitempty"`
}

// Deal is built once per trip per category and never mutated afterwards.
type Deal struct {
	Category DealCategory `json:"category"`
	Trip     Trip         `json:"trip"`
	Flight   FlightQuote  `json:"flight"`
	Stay     *StayQuote   `json:"stay,omitempty"`
	Total    Money        `json:"total"`
	Notes    []string     `json:"notes,omitempty"`
}

// Observation is the flattened view of a Deal that the alert detector tracks.
type Observation struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DepartDate  string  `json:"departDate"`
	ReturnDate  string  `json:"returnDate,omitempty"`
	PriceGBP    float64 `json:"priceGBP"`
	Currency    string  `json:"currency"`
}

// Observation flattens the deal for price tracking.
func (d Deal) Observation() Observation {
	return Observation{
		Origin:      d.Trip.Origin,
		Destination: d.Trip.Destination,
		DepartDate:  d.Trip.DepartDate,
		ReturnDate:  d.Trip.ReturnDate,
		PriceGBP:    d.Total.Amount,
		Currency:    d.Total.Currency,
	}
}
