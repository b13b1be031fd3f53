package main

import (
	"net/http"

	"github.com/Tamerlan12345/vision/internal/live"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
	// Browser clients connect from the SPA origin; CORS is handled at the
	// middleware level for the REST routes, so mirror that here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLiveInspection upgrades the connection and hands it to a dedicated
// bridge. Run blocks until the client disconnects.
func handleLiveInspection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("remote", r.RemoteAddr).Msg("Live inspection client connected")
	bridge := live.NewBridge(newLiveConfig(), conn)
	bridge.Run(r.Context())
	log.Info().Str("remote", r.RemoteAddr).Msg("Live inspection session ended")
}
