package tracker

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nuha.dev/geotrack/internal/broker"
	"nuha.dev/geotrack/internal/store/impl/memstore"
	"nuha.dev/geotrack/internal/webstream"
)

func TestWsChannelSend(t *testing.T) {
	st := memstore.NewStore()
	br, err := broker.NewBroker()
	if err != nil {
		t.Fatal(err)
	}
	ws := webstream.NewWebstream(st, br, webstream.WebstreamConfig{ListenAddr: ":0"})
	ts := httptest.NewServer(ws.Handler())
	defer ts.Close()

	ch := NewWsChannel("ws" + strings.TrimPrefix(ts.URL, "http"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch.Connect(ctx)
	defer ch.Close()
	if !ch.Connected() {
		t.Fatal("channel not connected")
	}

	err = ch.Send(ctx, "u1", 10.5, 20.5)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		hist, err := st.History(context.Background(), "u1")
		if err == nil && len(hist) == 1 {
			if hist[0].Latitude != 10.5 || hist[0].Longitude != 20.5 {
				t.Errorf("history = %+v", hist)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("update never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWsChannelSendBeforeConnect(t *testing.T) {
	ch := NewWsChannel("ws://localhost:1")
	err := ch.Send(context.Background(), "u1", 10.5, 20.5)
	if err != ErrNotConnected {
		t.Fatalf("err = %v", err)
	}
}

func TestWsChannelGivesUpOnCancel(t *testing.T) {
	ch := NewWsChannel("ws://localhost:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch.Connect(ctx)
	ch.mu.Lock()
	gaveUp := ch.gaveUp
	ch.mu.Unlock()
	if !gaveUp {
		t.Fatal("cancelled dial left the channel in a non-terminal state")
	}
	if ch.Connected() {
		t.Fatal("connected after cancelled dial")
	}
}
