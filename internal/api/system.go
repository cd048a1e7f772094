package api

import (
	"net/http"
	"time"
)

// handleSystemStatus reports daemon health for dashboards and scripts.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}

	if s.mqtt != nil {
		status["mqtt_connected"] = s.mqtt.IsConnected()
	}
	if s.hub != nil {
		status["websocket_clients"] = s.hub.ClientCount()
	}
	if s.features != nil {
		status["features_supported"] = len(s.features.ListSupported(r.Context()))
	}
	if s.automations != nil {
		status["automations"] = s.automations.Count()
	}

	writeJSON(w, http.StatusOK, status)
}
