package track

import (
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidReport = errors.New("invalid position report")

// Report is what a client submits, over HTTP or over the websocket
// channel. Latitude/longitude are pointers so that 0 survives the
// required check, it is a legal coordinate.
type Report struct {
	UserID    string   `json:"userId" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// Update is a report after the server stamped it. This is the payload
// broadcast to live viewers and published on the bus.
type Update struct {
	UserID    string    `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

func Validate(v *validator.Validate, r *Report) error {
	err := v.Struct(r)
	if err != nil {
		return ErrInvalidReport
	}
	if !finite(*r.Latitude) || !finite(*r.Longitude) {
		return ErrInvalidReport
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Stamp assigns the server receive time, client clocks are not trusted.
func Stamp(r *Report, srvt time.Time) Update {
	return Update{UserID: r.UserID, Latitude: *r.Latitude, Longitude: *r.Longitude, Timestamp: srvt}
}
