package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"nuha.dev/geotrack/internal/track"
	"nuha.dev/geotrack/internal/webstream"
)

var ErrNotConnected = errors.New("channel not connected")

const (
	dialAttempts = 5
	dialDelay    = 2 * time.Second
)

// WsChannel is the websocket client used by the tracking agent. The
// connection is established once, independent of tracking state, with a
// bounded reconnect policy. After dialAttempts failures it gives up
// silently and Send keeps returning ErrNotConnected.
type WsChannel struct {
	url     string
	mu      sync.Mutex
	c       *websocket.Conn
	gaveUp  bool
	dialing bool
	log     zerolog.Logger
}

func NewWsChannel(url string) *WsChannel {
	w := &WsChannel{url: url}
	w.log = log.With().Str("module", "wschannel").Logger()
	return w
}

// Connect dials the server, retrying up to dialAttempts times.
func (w *WsChannel) Connect(ctx context.Context) {
	w.dial(ctx)
}

func (w *WsChannel) dial(ctx context.Context) {
	w.mu.Lock()
	if w.c != nil || w.dialing || w.gaveUp {
		w.mu.Unlock()
		return
	}
	w.dialing = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.dialing = false
		w.mu.Unlock()
	}()
	for i := 0; i < dialAttempts; i++ {
		c, _, err := websocket.Dial(ctx, w.url, nil)
		if err == nil {
			w.mu.Lock()
			w.c = c
			w.mu.Unlock()
			w.log.Info().Msg("channel connected")
			go w.drain(c)
			return
		}
		w.log.Debug().Err(err).Msgf("dial attempt %d failed", i+1)
		select {
		case <-ctx.Done():
			w.giveUp()
			return
		case <-time.After(dialDelay):
		}
	}
	w.giveUp()
}

func (w *WsChannel) giveUp() {
	w.mu.Lock()
	w.gaveUp = true
	w.mu.Unlock()
	w.log.Info().Msg("giving up on channel connection")
}

// drain consumes server broadcasts so the connection stays healthy. The
// agent is not an observer, echoes are only logged.
func (w *WsChannel) drain(c *websocket.Conn) {
	for {
		env := webstream.Envelope{}
		err := wsjson.Read(context.Background(), c, &env)
		if err != nil {
			w.mu.Lock()
			if w.c == c {
				w.c = nil
			}
			w.mu.Unlock()
			w.log.Debug().Err(err).Msg("channel read failed")
			go w.dial(context.Background())
			return
		}
		w.log.Debug().Str("event", env.Event).Msg("server message")
	}
}

func (w *WsChannel) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c != nil
}

func (w *WsChannel) Send(ctx context.Context, userID string, lat float64, lon float64) error {
	w.mu.Lock()
	c := w.c
	w.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(track.Report{UserID: userID, Latitude: &lat, Longitude: &lon})
	if err != nil {
		return err
	}
	err = wsjson.Write(ctx, c, webstream.Envelope{Event: webstream.EventUpdateLocation, Data: payload})
	if err != nil {
		c.Close(websocket.StatusAbnormalClosure, "write failed")
		return err
	}
	return nil
}

func (w *WsChannel) Close() {
	w.mu.Lock()
	c := w.c
	w.c = nil
	w.gaveUp = true
	w.mu.Unlock()
	if c != nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}
