package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("no location data for subject")

// CurrentPosition is the latest stamped report per subject, overwritten
// on every ingest.
type CurrentPosition struct {
	Subject    string    `json:"userId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ServerTime time.Time `json:"timestamp"`
}

// HistoryEntry is an immutable copy of one ingested report. Id is
// assigned by the store at insert time.
type HistoryEntry struct {
	Id         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ServerTime time.Time `json:"timestamp"`
}

type LocationStore interface {
	// PutLocation overwrites the current position of subject and appends
	// a history entry, in one transaction where the backend supports it.
	PutLocation(ctx context.Context, subject string, lat float64, lon float64, srvt time.Time) error
	// History returns all entries for subject ordered ascending by
	// server time, ErrNotFound when there are none.
	History(ctx context.Context, subject string) ([]HistoryEntry, error)
	// Current returns the current position of subject, ErrNotFound when
	// the subject was never seen.
	Current(ctx context.Context, subject string) (CurrentPosition, error)
}
