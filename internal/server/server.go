// Package server exposes a machine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/enetx/hfsm"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StateResponse is returned by GET /state, POST /events/{event} and
// POST /reset.
type StateResponse[C any] struct {
	State    hfsm.State `json:"state"`
	Previous hfsm.State `json:"previous,omitempty"`
	Context  C          `json:"context"`
	Accepted *bool      `json:"accepted,omitempty"`
}

type options struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*options)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGatherer serves metrics from g on GET /metrics. Without it the route is
// not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

type handler[C any] struct {
	machine hfsm.Controller[C]
	logger  *slog.Logger
}

// New returns the HTTP handler for m.
//
//	GET  /state           current snapshot
//	POST /events/{event}  send an event; an optional JSON body is the payload
//	GET  /history         transition history, oldest first
//	POST /reset           return to the initial state
//	GET  /dot             Graphviz DOT with the current state highlighted
//	GET  /metrics         Prometheus metrics, when a gatherer is set
func New[C any](m hfsm.Controller[C], opts ...Option) http.Handler {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	h := &handler[C]{machine: m, logger: o.logger}

	r := chi.NewRouter()
	r.Get("/state", h.state)
	r.Post("/events/{event}", h.send)
	r.Get("/history", h.history)
	r.Post("/reset", h.reset)
	r.Get("/dot", h.dot)

	if o.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func (h *handler[C]) state(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.snapshot(nil))
}

func (h *handler[C]) send(w http.ResponseWriter, r *http.Request) {
	event := hfsm.Event(chi.URLParam(r, "event"))

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body: expected a JSON object", http.StatusBadRequest)
		h.logger.Warn("send: invalid request body", "event", event, "error", err)
		return
	}

	var (
		accepted bool
		err      error
	)

	if payload != nil {
		accepted, err = h.machine.Dispatch(event, payload)
	} else {
		accepted, err = h.machine.Dispatch(event)
	}

	if err != nil {
		status := http.StatusInternalServerError
		if hfsm.IsCallbackError(err) {
			status = http.StatusUnprocessableEntity
		}

		http.Error(w, err.Error(), status)
		h.logger.Error("send failed", "event", event, "error", err)

		return
	}

	h.logger.Info("event", "event", event, "accepted", accepted, "state", h.machine.Current())
	h.writeJSON(w, http.StatusOK, h.snapshot(&accepted))
}

func (h *handler[C]) history(w http.ResponseWriter, _ *http.Request) {
	records := h.machine.History()
	if records == nil {
		records = []hfsm.Record[C]{}
	}

	h.writeJSON(w, http.StatusOK, records)
}

func (h *handler[C]) reset(w http.ResponseWriter, _ *http.Request) {
	h.machine.Reset()
	h.logger.Info("reset", "state", h.machine.Current())
	h.writeJSON(w, http.StatusOK, h.snapshot(nil))
}

func (h *handler[C]) dot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, string(h.machine.ToDOT()))
}

func (h *handler[C]) snapshot(accepted *bool) StateResponse[C] {
	snap := h.machine.Snapshot()

	return StateResponse[C]{
		State:    snap.State,
		Previous: snap.Previous,
		Context:  snap.Context,
		Accepted: accepted,
	}
}

func (h *handler[C]) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", "error", err)
	}
}
