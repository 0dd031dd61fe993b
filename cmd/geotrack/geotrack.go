package main

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nuha.dev/geotrack/internal/broker"
	"nuha.dev/geotrack/internal/config"
	"nuha.dev/geotrack/internal/natsbridge"
	"nuha.dev/geotrack/internal/store/impl/pgstore"
	"nuha.dev/geotrack/internal/web"
	"nuha.dev/geotrack/internal/webstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	pool, err := pgxpool.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect to database")
	}
	st := pgstore.NewStore(pool)

	br, err := broker.NewBroker()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create broker")
	}

	ws := webstream.NewWebstream(st, br, webstream.WebstreamConfig{
		ListenAddr:    cfg.WsAddr,
		ProxyProtocol: cfg.ProxyProtocol,
	})

	if cfg.NatsUrl != "" {
		_, err := natsbridge.NewBridge(cfg.NatsUrl, br)
		if err != nil {
			//the bridge is optional, keep serving without it
			log.Error().Err(err).Msg("unable to connect nats bridge")
		}
	}

	api := web.NewApi(st, br, &web.ApiConfig{
		ListenAddr:    cfg.ApiAddr,
		ProxyProtocol: cfg.ProxyProtocol,
	})

	go ws.Run()
	api.Run()
}
