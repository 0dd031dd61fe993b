package webstream

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	proxyproto "github.com/pires/go-proxyproto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"nuha.dev/geotrack/internal/broker"
	"nuha.dev/geotrack/internal/store"
	"nuha.dev/geotrack/internal/sublist"
	"nuha.dev/geotrack/internal/track"
	"nuha.dev/geotrack/internal/util"
)

const (
	EventUpdateLocation string = "update-location"
	EventLocationUpdate string = "location-update"
)

// Envelope is the wire frame on the live channel, event name plus raw
// payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type WebstreamConfig struct {
	ListenAddr    string
	ProxyProtocol bool
}

type WebstreamServer struct {
	server   *http.Server
	log      zerolog.Logger
	store    store.LocationStore
	br       *broker.Broker
	subs     *sublist.Sublist
	validate *validator.Validate
	config   WebstreamConfig
}

func NewWebstream(st store.LocationStore, br *broker.Broker, config WebstreamConfig) *WebstreamServer {
	ws := &WebstreamServer{config: config, store: st, br: br}
	ws.server = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        http.HandlerFunc(ws.serve_http),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	ws.log = log.With().Str("module", "websocket").Logger()
	ws.subs = sublist.NewSublist()
	ws.validate = validator.New()
	//every persisted update reaches the websocket viewers through the
	//broker, including ones ingested over plain http
	br.SubscribeLocation("webstream", ws.broadcast)
	return ws
}

func (ws *WebstreamServer) Run() {
	ws.log.Info().Msgf("starting ws-server on %s", ws.server.Addr)
	ln, err := net.Listen("tcp", ws.server.Addr)
	if err != nil {
		ws.log.Error().Err(err).Msg("unable to listen")
		panic(err)
	}
	if ws.config.ProxyProtocol {
		ln = &proxyproto.Listener{Listener: ln}
	}
	err = ws.server.Serve(ln)
	if err != nil {
		panic(err)
	}
}

// Handler exposes the upgrade handler without the listener, for tests.
func (ws *WebstreamServer) Handler() http.Handler {
	return http.HandlerFunc(ws.serve_http)
}

func (ws *WebstreamServer) Subscribers() int {
	return ws.subs.Len()
}

func (ws *WebstreamServer) broadcast(ctx context.Context, u track.Update) {
	payload, err := json.Marshal(u)
	if err != nil {
		ws.log.Error().Err(err).Msg("error marshaling update")
		return
	}
	data, err := json.Marshal(Envelope{Event: EventLocationUpdate, Data: payload})
	if err != nil {
		ws.log.Error().Err(err).Msg("error marshaling envelope")
		return
	}
	ws.subs.Send(u.UserID, data)
}

func (ws *WebstreamServer) serve_http(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		ws.log.Error().Err(err).Msg("error while upgrading websocket")
		return
	}
	wc := newClient(c, ws.log)
	ws.log.Info().Str("cid", wc.cid).Msg("client connected")
	ws.subs.Subscribe(wc)
	go wc.writeLoop()
	ws.readLoop(wc)
	ws.log.Info().Str("cid", wc.cid).Msg("client disconnected")
}

func (ws *WebstreamServer) readLoop(wc *WsClient) {
	for {
		env := Envelope{}
		err := wsjson.Read(context.Background(), wc.c, &env)
		if err != nil {
			wc.closeErr(err)
			return
		}
		if env.Event == EventUpdateLocation {
			ws.handleUpdate(wc, env.Data)
		} else {
			ws.log.Debug().Str("cid", wc.cid).Str("event", env.Event).Msg("ignoring unknown event")
		}
	}
}

// handleUpdate validates and persists one client report. Broadcast is
// gated on persistence success, unpersisted data never reaches the
// viewers. Rejected updates are dropped without an acknowledgement.
func (ws *WebstreamServer) handleUpdate(wc *WsClient, data []byte) {
	req := track.Report{}
	err := json.Unmarshal(data, &req)
	if err != nil {
		ws.log.Error().Err(err).Str("cid", wc.cid).Msg("malformed update-location payload")
		return
	}
	err = track.Validate(ws.validate, &req)
	if err != nil {
		ws.log.Error().Str("cid", wc.cid).Msg("invalid update-location payload")
		return
	}
	u := track.Stamp(&req, time.Now().UTC())
	err = ws.store.PutLocation(context.Background(), u.UserID, u.Latitude, u.Longitude, u.Timestamp)
	if err != nil {
		ws.log.Error().Err(err).Str("subject", u.UserID).Msg("error saving location, suppressing broadcast")
		return
	}
	ws.br.PublishLocation(context.Background(), u)
}

type WsClient struct {
	c       *websocket.Conn
	cid     string
	wch     chan []byte
	done    chan struct{}
	stop    sync.Once
	closed  uint32
	err     error
	log     zerolog.Logger
	pushed  uint64
	skipped uint64
}

func newClient(c *websocket.Conn, logger zerolog.Logger) *WsClient {
	wc := &WsClient{c: c}
	wc.cid = util.GenRandomString(nil, 9)
	wc.wch = make(chan []byte, 16)
	wc.done = make(chan struct{})
	wc.log = logger.With().Str("cid", wc.cid).Logger()
	return wc
}

func (wc *WsClient) writeLoop() {
	for {
		select {
		case d := <-wc.wch:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := wc.c.Write(ctx, websocket.MessageText, d)
			cancel()
			if err != nil {
				wc.log.Error().Err(err).Msg("error while writing to connection")
				wc.closeErr(err)
				return
			}
		case <-wc.done:
			return
		}
	}
}

func (wc *WsClient) closeErr(err error) {
	wc.stop.Do(func() {
		wc.err = err
		atomic.StoreUint32(&wc.closed, 1)
		close(wc.done)
		wc.c.Close(websocket.StatusNormalClosure, "")
	})
}

// Push queues data for delivery. Never blocks, a full buffer drops the
// message instead of stalling the other subscribers.
func (wc *WsClient) Push(sender string, d []byte) error {
	if wc.Closed() {
		return wc.err
	}
	select {
	case wc.wch <- d:
		atomic.AddUint64(&wc.pushed, 1)
	default:
		atomic.AddUint64(&wc.skipped, 1)
		wc.log.Debug().Msgf("dropping %d bytes", len(d))
	}
	return nil
}

func (wc *WsClient) Closed() bool {
	return atomic.LoadUint32(&wc.closed) == 1
}

func (wc *WsClient) Name() string {
	return wc.cid
}
