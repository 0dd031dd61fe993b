package web

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	proxyproto "github.com/pires/go-proxyproto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nuha.dev/geotrack/internal/broker"
	"nuha.dev/geotrack/internal/store"
	"nuha.dev/geotrack/internal/track"
	"nuha.dev/geotrack/internal/util"
)

type ApiConfig struct {
	ListenAddr    string
	ProxyProtocol bool
}

type Api struct {
	r        chi.Router
	s        *http.Server
	config   *ApiConfig
	store    store.LocationStore
	br       *broker.Broker
	validate *validator.Validate
	log      zerolog.Logger
}

func NewApi(st store.LocationStore, br *broker.Broker, config *ApiConfig) *Api {
	api := &Api{config: config, store: st, br: br}
	api.log = log.With().Str("module", "api").Logger()
	api.validate = validator.New()
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("geotrack backend running"))
	})
	r.Post("/gps", api.postGps)
	r.Get("/gps/history/{userId}", api.getHistory)
	api.r = r
	api.s = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return api
}

// Handler exposes the router without the listener, for tests.
func (api *Api) Handler() http.Handler {
	return api.r
}

func (api *Api) Run() {
	api.log.Info().Msgf("starting api server on %s", api.config.ListenAddr)
	ln, err := net.Listen("tcp", api.s.Addr)
	if err != nil {
		api.log.Error().Err(err).Msg("unable to listen")
		panic(err)
	}
	if api.config.ProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	err = api.s.Serve(ln)
	if err != nil {
		panic(err)
	}
}

func (api *Api) postGps(w http.ResponseWriter, r *http.Request) {
	req := track.Report{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		util.JsonWrite(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	err = track.Validate(api.validate, &req)
	if err != nil {
		util.JsonWrite(w, http.StatusBadRequest, map[string]string{"error": "userId, latitude and longitude are required"})
		return
	}
	u := track.Stamp(&req, time.Now().UTC())
	err = api.store.PutLocation(r.Context(), u.UserID, u.Latitude, u.Longitude, u.Timestamp)
	if err != nil {
		api.log.Error().Err(err).Str("subject", u.UserID).Msg("error saving location")
		util.JsonWrite(w, http.StatusInternalServerError, map[string]string{"error": "error saving location"})
		return
	}
	api.br.PublishLocation(r.Context(), u)
	util.JsonWrite(w, http.StatusOK, map[string]string{"message": "location saved"})
}

func (api *Api) getHistory(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "userId")
	entries, err := api.store.History(r.Context(), subject)
	if err != nil {
		if err == store.ErrNotFound {
			util.JsonWrite(w, http.StatusNotFound, map[string]string{"message": "no locations found for this user"})
			return
		}
		api.log.Error().Err(err).Str("subject", subject).Msg("error querying history")
		util.JsonWrite(w, http.StatusInternalServerError, map[string]string{"error": "error querying history"})
		return
	}
	util.JsonWrite(w, http.StatusOK, entries)
}
