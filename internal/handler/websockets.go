package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"keywatch/internal/logger"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerHub is the part of the status hub the viewer endpoint needs.
type ViewerHub interface {
	Register(client *websocket.Conn)
	Unregister(client *websocket.Conn)
}

// ViewWebsocketHandler handles viewer connections over WebSocket and
// registers them in the hub to receive occupancy, alarm and frame messages.
func ViewWebsocketHandler(hub ViewerHub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
