package broker

import (
	"context"

	"github.com/mustafaturan/bus/v3"
	"github.com/mustafaturan/monoton/v2"
	"github.com/mustafaturan/monoton/v2/sequencer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nuha.dev/geotrack/internal/track"
)

// TopicLocation carries every successfully persisted location update.
const TopicLocation = "location.updated"

// Broker is the process-wide fan-out point between the ingest paths
// (http, websocket) and the live observers (websocket broadcast, nats
// bridge). It is handed to components explicitly, there is no package
// level singleton.
type Broker struct {
	b      *bus.Bus
	logger zerolog.Logger
}

func NewBroker() (*Broker, error) {
	node := uint64(1)
	initialTime := uint64(1577865600000)
	m, err := monoton.New(sequencer.NewMillisecond(), node, initialTime)
	if err != nil {
		return nil, err
	}
	var idGenerator bus.Next = m.Next
	b, err := bus.NewBus(idGenerator)
	if err != nil {
		return nil, err
	}
	b.RegisterTopics(TopicLocation)
	br := &Broker{b: b}
	br.logger = log.With().Str("module", "broker").Logger()
	return br, nil
}

func (br *Broker) PublishLocation(ctx context.Context, u track.Update) {
	err := br.b.Emit(ctx, TopicLocation, u)
	if err != nil {
		br.logger.Err(err).Str("subject", u.UserID).Msg("error emitting location update")
	}
}

// SubscribeLocation registers fn under key. Handlers run on the
// publisher's goroutine, they must not block.
func (br *Broker) SubscribeLocation(key string, fn func(ctx context.Context, u track.Update)) {
	br.b.RegisterHandler(key, bus.Handler{
		Matcher: "^" + TopicLocation + "$",
		Handle: func(ctx context.Context, e bus.Event) {
			u, ok := e.Data.(track.Update)
			if !ok {
				br.logger.Error().Str("topic", e.Topic).Msg("unexpected event payload type")
				return
			}
			fn(ctx, u)
		},
	})
}

func (br *Broker) Unsubscribe(key string) {
	br.b.DeregisterHandler(key)
}
