// Package main runs a demo WebSocket client for run events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"fleetplan/internal/scenario"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	file := "internal/scenario/testdata/scenario1.yaml"
	if len(os.Args) > 1 {
		file = os.Args[1]
	}

	sc, err := scenario.Load(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("load scenario")
	}

	// Subscribe to every run event
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/ws", RawQuery: "topic=all"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("dial")
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Info().Err(err).Msg("read")
				return
			}
			log.Info().Str("type", m.Type).Str("topic", m.Topic).RawJSON("event", orNull(m.Event)).Msg("WS <-")
		}
	}()

	// Trigger events with a comparison of the scenario
	time.Sleep(200 * time.Millisecond)
	body, _ := json.Marshal(map[string]any{"problem": sc.Problem})
	resp, err := http.Post(base+"/v1/compare", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal().Err(err).Msg("compare")
	}
	_ = resp.Body.Close()
	log.Info().Int("status", resp.StatusCode).Str("scenario", sc.Name).Msg("compare submitted")

	// Wait briefly to receive the events
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}

func orNull(b json.RawMessage) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
