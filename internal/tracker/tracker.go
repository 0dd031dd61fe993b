package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrPermissionDenied is returned by a Source when the OS refused the
// positioning permission.
var ErrPermissionDenied = errors.New("location permission denied")

type Position struct {
	Latitude  float64
	Longitude float64
}

// WatchOptions are policy parameters, the source decides the actual
// sampling moments.
type WatchOptions struct {
	MinInterval time.Duration
	MinDistance float64 //meters
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{MinInterval: 5 * time.Second, MinDistance: 10}
}

// Source is a positioning provider. Watch delivers samples until ctx is
// cancelled, then closes the channel.
type Source interface {
	Watch(ctx context.Context, opts WatchOptions) (<-chan Position, error)
}

// Channel is the client side of the live fan-out channel.
type Channel interface {
	Send(ctx context.Context, userID string, lat float64, lon float64) error
	Connected() bool
}

// Tracker forwards position samples to the channel while tracking is
// on. Samples arriving while the channel is down are dropped, there is
// no offline queue.
type Tracker struct {
	src      Source
	ch       Channel
	userID   string
	opts     WatchOptions
	mu       sync.Mutex
	cancel   context.CancelFunc
	tracking bool
	dropped  uint64
	log      zerolog.Logger
}

func NewTracker(src Source, ch Channel, userID string, opts WatchOptions) *Tracker {
	t := &Tracker{src: src, ch: ch, userID: userID, opts: opts}
	t.log = log.With().Str("module", "tracker").Str("subject", userID).Logger()
	return t
}

func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracking {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	pos, err := t.src.Watch(ctx, t.opts)
	if err != nil {
		cancel()
		return err
	}
	t.cancel = cancel
	t.tracking = true
	t.log.Info().Msg("tracking started")
	go t.loop(ctx, pos)
	return nil
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking {
		return
	}
	t.cancel()
	t.tracking = false
	t.log.Info().Msg("tracking stopped")
}

func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// Dropped counts samples lost while the channel was disconnected.
func (t *Tracker) Dropped() uint64 {
	return atomic.LoadUint64(&t.dropped)
}

func (t *Tracker) loop(ctx context.Context, pos <-chan Position) {
	for p := range pos {
		if !t.ch.Connected() {
			atomic.AddUint64(&t.dropped, 1)
			t.log.Debug().Msg("channel disconnected, dropping sample")
			continue
		}
		err := t.ch.Send(ctx, t.userID, p.Latitude, p.Longitude)
		if err != nil {
			atomic.AddUint64(&t.dropped, 1)
			t.log.Debug().Err(err).Msg("send failed, dropping sample")
		}
	}
}
