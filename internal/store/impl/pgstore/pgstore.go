package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/phuslu/log"

	"nuha.dev/geotrack/internal/store"
	"nuha.dev/geotrack/internal/util"
)

type Store struct {
	db  *pgxpool.Pool
	log log.Logger
}

func NewStore(db *pgxpool.Pool) *Store {
	st := &Store{}
	st.db = db
	st.log = log.DefaultLogger
	st.log.Context = log.NewContext(nil).Str("module", "pgstore").Value()
	return st
}

const upsertCurrent = `INSERT INTO current_location(subject,latitude,longitude,server_time) VALUES ($1,$2,$3,$4)
ON CONFLICT (subject) DO UPDATE SET latitude=$2, longitude=$3, server_time=$4`

const insertHistory = `INSERT INTO location_history(id,subject,latitude,longitude,server_time) VALUES ($1,$2,$3,$4,$5)`

// PutLocation writes the current position and the history entry in one
// transaction so a partial ingest never becomes visible.
func (st *Store) PutLocation(ctx context.Context, subject string, lat float64, lon float64, srvt time.Time) error {
	tx, err := st.db.Begin(ctx)
	if err != nil {
		st.log.Error().Err(err).Msg("unable to begin transaction")
		return err
	}
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx, upsertCurrent, subject, lat, lon, srvt)
	if err != nil {
		st.log.Error().Err(err).Str("subject", subject).Msg("error writing current location")
		return err
	}
	_, err = tx.Exec(ctx, insertHistory, util.GenUUID(), subject, lat, lon, srvt)
	if err != nil {
		st.log.Error().Err(err).Str("subject", subject).Msg("error appending history")
		return err
	}
	return tx.Commit(ctx)
}

func (st *Store) History(ctx context.Context, subject string) ([]store.HistoryEntry, error) {
	rows, err := st.db.Query(ctx,
		`SELECT id,latitude,longitude,server_time FROM location_history WHERE subject=$1 ORDER BY server_time ASC`, subject)
	if err != nil {
		st.log.Error().Err(err).Str("subject", subject).Msg("error querying history")
		return nil, err
	}
	defer rows.Close()
	entries := make([]store.HistoryEntry, 0, 50)
	for rows.Next() {
		var e store.HistoryEntry
		err = rows.Scan(&e.Id, &e.Latitude, &e.Longitude, &e.ServerTime)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(entries) == 0 {
		return nil, store.ErrNotFound
	}
	return entries, nil
}

func (st *Store) Current(ctx context.Context, subject string) (store.CurrentPosition, error) {
	cur := store.CurrentPosition{Subject: subject}
	row := st.db.QueryRow(ctx,
		`SELECT latitude,longitude,server_time FROM current_location WHERE subject=$1`, subject)
	err := row.Scan(&cur.Latitude, &cur.Longitude, &cur.ServerTime)
	if err != nil {
		if err == pgx.ErrNoRows {
			return cur, store.ErrNotFound
		}
		st.log.Error().Err(err).Str("subject", subject).Msg("error querying current location")
		return cur, err
	}
	return cur, nil
}
