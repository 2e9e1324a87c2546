// Package admin builds the operator-facing HTTP router: Prometheus metrics,
// a JSON health probe and build metadata.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/buildinfo"
	"github.com/gorilla/mux"
)

// Status is a point-in-time view of the chat server.
type Status struct {
	Ready    bool
	Sessions int
}

type StatusFunc func() Status

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// NewRouter wires the admin endpoints. metrics may be nil, in which case
// /metrics is not registered.
func NewRouter(metrics http.Handler, status StatusFunc) *mux.Router {
	r := mux.NewRouter()
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", healthHandler(status)).Methods(http.MethodGet)
	r.HandleFunc("/version", versionHandler).Methods(http.MethodGet)
	return r
}

func healthHandler(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := status()
		resp := healthResponse{Status: "ok", Sessions: st.Sessions}
		code := http.StatusOK
		if !st.Ready {
			resp.Status = "starting"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	buildinfo.PrintBuildData(w)
}
