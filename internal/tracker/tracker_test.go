package tracker

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	out     chan Position
	denied  bool
	gotOpts WatchOptions
}

func newFakeSource() *fakeSource {
	return &fakeSource{out: make(chan Position)}
}

func (f *fakeSource) Watch(ctx context.Context, opts WatchOptions) (<-chan Position, error) {
	if f.denied {
		return nil, ErrPermissionDenied
	}
	f.gotOpts = opts
	go func() {
		<-ctx.Done()
		close(f.out)
	}()
	return f.out, nil
}

type sent struct {
	userID string
	lat    float64
	lon    float64
}

type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	sends     []sent
}

func (f *fakeChannel) Send(ctx context.Context, userID string, lat float64, lon float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sent{userID: userID, lat: lat, lon: lon})
	return nil
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sent, len(f.sends))
	copy(out, f.sends)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestForwardSamples(t *testing.T) {
	src := newFakeSource()
	ch := &fakeChannel{connected: true}
	tr := NewTracker(src, ch, "u1", DefaultWatchOptions())
	err := tr.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()
	if !tr.Tracking() {
		t.Fatal("not tracking after start")
	}

	src.out <- Position{Latitude: 10.5, Longitude: 20.5}
	src.out <- Position{Latitude: 11.5, Longitude: 21.5}
	waitFor(t, func() bool { return len(ch.sent()) == 2 })

	s := ch.sent()
	if s[0].userID != "u1" || s[0].lat != 10.5 || s[1].lat != 11.5 {
		t.Errorf("sends = %+v", s)
	}
}

func TestPermissionDenied(t *testing.T) {
	src := newFakeSource()
	src.denied = true
	tr := NewTracker(src, &fakeChannel{connected: true}, "u1", DefaultWatchOptions())
	err := tr.Start()
	if err != ErrPermissionDenied {
		t.Fatalf("err = %v", err)
	}
	if tr.Tracking() {
		t.Error("tracking after denied permission")
	}
}

func TestDropWhileDisconnected(t *testing.T) {
	src := newFakeSource()
	ch := &fakeChannel{connected: false}
	tr := NewTracker(src, ch, "u1", DefaultWatchOptions())
	err := tr.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()

	src.out <- Position{Latitude: 10.5, Longitude: 20.5}
	waitFor(t, func() bool { return tr.Dropped() == 1 })
	if len(ch.sent()) != 0 {
		t.Errorf("sends = %+v", ch.sent())
	}
}

func TestStop(t *testing.T) {
	src := newFakeSource()
	ch := &fakeChannel{connected: true}
	tr := NewTracker(src, ch, "u1", DefaultWatchOptions())
	err := tr.Start()
	if err != nil {
		t.Fatal(err)
	}
	tr.Stop()
	if tr.Tracking() {
		t.Error("tracking after stop")
	}
	//idempotent
	tr.Stop()
}

func TestStartTwice(t *testing.T) {
	src := newFakeSource()
	ch := &fakeChannel{connected: true}
	tr := NewTracker(src, ch, "u1", DefaultWatchOptions())
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestWatchOptionsPassedThrough(t *testing.T) {
	src := newFakeSource()
	opts := WatchOptions{MinInterval: time.Second, MinDistance: 25}
	tr := NewTracker(src, &fakeChannel{connected: true}, "u1", opts)
	if err := tr.Start(); err != nil {
		t.Fatal(err)
	}
	defer tr.Stop()
	if src.gotOpts != opts {
		t.Errorf("opts = %+v", src.gotOpts)
	}
}
