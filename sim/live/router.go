package live

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/floodsim/sim"
)

// APIHandler serves the runner's state.
type APIHandler struct {
	runner *Runner
}

// NewRouter returns the read-only HTTP view of r.
func NewRouter(r *Runner) *mux.Router {
	h := &APIHandler{runner: r}
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/status", h.statusHandler).Methods("GET")
	router.HandleFunc("/api/v1/summary", h.summaryHandler).Methods("GET")
	router.HandleFunc("/api/v1/series/{name}", h.seriesHandler).Methods("GET")
	return router
}

func (h *APIHandler) statusHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.runner.Snapshot())
}

func (h *APIHandler) summaryHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.runner.Summary())
}

func (h *APIHandler) seriesHandler(w http.ResponseWriter, r *http.Request) {
	var series []sim.MetricSample
	switch name := mux.Vars(r)["name"]; name {
	case "load":
		series = h.runner.LoadSeries()
	case "drops":
		series = h.runner.DropSeries()
	default:
		http.Error(w, fmt.Sprintf("unknown series %q (want load or drops)", name), http.StatusNotFound)
		return
	}
	writeJSON(w, series)
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logrus.Debugf("writing response: %v", err)
	}
}
