package main

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"nuha.dev/geotrack/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS current_location (
	subject     text PRIMARY KEY,
	latitude    double precision NOT NULL,
	longitude   double precision NOT NULL,
	server_time timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS location_history (
	id          uuid PRIMARY KEY,
	subject     text NOT NULL,
	latitude    double precision NOT NULL,
	longitude   double precision NOT NULL,
	server_time timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS location_history_subject_time ON location_history (subject, server_time);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err.Error())
	}
	pool, err := pgxpool.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		panic(err.Error())
	}
	_, err = pool.Exec(context.Background(), schema)
	if err != nil {
		panic(err.Error())
	}
}
