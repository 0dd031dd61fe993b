package natsbridge

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nuha.dev/geotrack/internal/broker"
	"nuha.dev/geotrack/internal/track"
)

const subjectPrefix = "geotrack.location."

// Bridge republishes persisted location updates to NATS so external
// consumers can observe them without holding a websocket connection.
type Bridge struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

func NewBridge(url string, br *broker.Broker) (*Bridge, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	b := &Bridge{nc: nc}
	b.logger = log.With().Str("module", "natsbridge").Logger()
	br.SubscribeLocation("natsbridge", b.publish)
	b.logger.Info().Str("url", url).Msg("nats bridge connected")
	return b, nil
}

func (b *Bridge) publish(ctx context.Context, u track.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		b.logger.Error().Err(err).Msg("error marshaling update")
		return
	}
	err = b.nc.Publish(subjectPrefix+u.UserID, data)
	if err != nil {
		b.logger.Error().Err(err).Str("subject", u.UserID).Msg("error publishing to nats")
	}
}

func (b *Bridge) Close() {
	b.nc.Close()
}
