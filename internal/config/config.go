package config

import (
	"errors"

	"github.com/spf13/viper"
)

// ErrMissingDBUrl means the store credential was not supplied. The
// process must refuse to start rather than serve with broken
// persistence.
var ErrMissingDBUrl = errors.New("db_url is required")

type Config struct {
	DBUrl         string
	ApiAddr       string
	WsAddr        string
	NatsUrl       string
	LogLevel      string
	ProxyProtocol bool
}

func Load() (*Config, error) {
	viper.SetEnvPrefix("geotrack")
	viper.AutomaticEnv()
	viper.SetDefault("api_addr", ":4000")
	viper.SetDefault("ws_addr", ":4001")
	viper.SetDefault("log_level", "info")
	c := &Config{}
	c.DBUrl = viper.GetString("db_url")
	if c.DBUrl == "" {
		return nil, ErrMissingDBUrl
	}
	c.ApiAddr = viper.GetString("api_addr")
	c.WsAddr = viper.GetString("ws_addr")
	c.NatsUrl = viper.GetString("nats_url")
	c.LogLevel = viper.GetString("log_level")
	c.ProxyProtocol = viper.GetBool("proxy_protocol")
	return c, nil
}
