package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"nuha.dev/geotrack/internal/tracker"
	"nuha.dev/geotrack/internal/tracker/simsource"
)

func main() {
	viper.SetEnvPrefix("trackerd")
	viper.AutomaticEnv()
	viper.SetDefault("ws_url", "ws://localhost:4001")
	viper.SetDefault("user_id", "")
	viper.SetDefault("interval", "5s")
	viper.SetDefault("distance", 10.0)
	viper.SetDefault("start_lat", -23.5505)
	viper.SetDefault("start_lon", -46.6333)
	viper.SetDefault("log_level", "info")

	level, err := zerolog.ParseLevel(viper.GetString("log_level"))
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	userID := viper.GetString("user_id")
	if userID == "" {
		log.Fatal().Msg("user_id is required")
	}

	ch := tracker.NewWsChannel(viper.GetString("ws_url"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ch.Connect(ctx)
	cancel()

	opts := tracker.WatchOptions{
		MinInterval: viper.GetDuration("interval"),
		MinDistance: viper.GetFloat64("distance"),
	}
	src := simsource.New(viper.GetFloat64("start_lat"), viper.GetFloat64("start_lon"))
	tr := tracker.NewTracker(src, ch, userID, opts)
	err = tr.Start()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to start tracking")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	tr.Stop()
	ch.Close()
}
