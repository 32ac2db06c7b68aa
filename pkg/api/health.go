package api

import (
	"encoding/json"
	"net/http"
	"time"
)

type healthRes struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	Uptime     string `json:"uptime"`
}

// Health returns a liveness handler reporting service identity and uptime.
func Health(service, instanceID string) http.HandlerFunc {
	start := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		res := healthRes{
			Status:     "pass",
			Service:    service,
			InstanceID: instanceID,
			Uptime:     time.Since(start).Round(time.Second).String(),
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(res); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
