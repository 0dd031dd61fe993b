package simsource

import (
	"context"
	"math/rand"
	"time"

	"nuha.dev/geotrack/internal/geo"
	"nuha.dev/geotrack/internal/tracker"
)

// Source fakes a GPS receiver with a random walk around a starting
// coordinate. Stands in for the real positioning hardware the same way
// the fake device feeders stand in for real trackers.
type Source struct {
	lat  float64
	lon  float64
	step float64 //degrees per tick
	rnd  *rand.Rand
}

func New(lat float64, lon float64) *Source {
	s := &Source{lat: lat, lon: lon}
	s.step = 0.0005
	s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	return s
}

func (s *Source) Watch(ctx context.Context, opts tracker.WatchOptions) (<-chan tracker.Position, error) {
	out := make(chan tracker.Position)
	go func() {
		defer close(out)
		ticker := time.NewTicker(opts.MinInterval)
		defer ticker.Stop()
		cur := tracker.Position{Latitude: s.lat, Longitude: s.lon}
		last := cur
		first := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur.Latitude += (s.rnd.Float64() - 0.5) * s.step
				cur.Longitude += (s.rnd.Float64() - 0.5) * s.step
				if !first && geo.HaversineM(last.Latitude, last.Longitude, cur.Latitude, cur.Longitude) < opts.MinDistance {
					continue
				}
				select {
				case out <- cur:
					last = cur
					first = false
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
