package service

import (
	"encoding/json"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/ws"
)

// publishEvent pushes an event to connected dashboard clients. Fire and
// forget: broadcasting must never block or fail a committed write.
func publishEvent(hub *ws.Hub, payload map[string]interface{}) {
	if hub == nil {
		return
	}
	go func() {
		msg, err := json.Marshal(payload)
		if err != nil {
			return
		}
		hub.Broadcast <- msg
	}()
}
