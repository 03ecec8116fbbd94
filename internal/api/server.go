package api

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gimelstudio/gsnodes/internal/appshell"
	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/host"
	"github.com/gimelstudio/gsnodes/internal/node"
	"github.com/gimelstudio/gsnodes/internal/plugin"
	"github.com/gimelstudio/gsnodes/internal/version"
)

// Session is the set of node instances the API operates on.
type Session interface {
	HasNode(id string) bool
	Instances() []*host.InstanceInfo
	Describe(id string) (*host.InstanceInfo, bool)
	SetMuted(id string, muted bool) error
	SetProperty(id, key string, value interface{}) error
	Evaluate(id string) error
}

var (
	catalog     *plugin.Registry
	session     Session
	viewFactory appshell.ViewFactory
	tlsConfig   *tls.Config
)

// SetCatalog sets the plugin catalog served by /nodes.
func SetCatalog(r *plugin.Registry) {
	catalog = r
}

// SetTLS makes ListenAndServe serve HTTPS with cfg. Pass nil for plain HTTP.
func SetTLS(cfg *tls.Config) {
	tlsConfig = cfg
}

// SetSession sets the session used by the instance endpoints.
func SetSession(s Session) {
	session = s
}

type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Hostname    string `json:"hostname"`
	EventsTotal uint64 `json:"events_total"`
	Timestamp   string `json:"ts"`
}

type InstanceRequest struct {
	ID    string      `json:"id"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value,omitempty"`
	Muted *bool       `json:"muted,omitempty"`
}

type InstanceResponse struct {
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Instance *host.InstanceInfo `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, InstanceResponse{OK: false, Error: msg})
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, host.ErrNodeNotFound), errors.Is(err, node.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.Is(err, node.ErrInvalidValue), errors.Is(err, node.ErrPropertyType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Service:     "gsnodes",
		Version:     version.Semver().String(),
		Hostname:    hostname,
		EventsTotal: events.TotalCount(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

// nodesHandler lists the node types available in the catalog.
func nodesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if catalog == nil {
		writeJSON(w, http.StatusOK, []map[string]interface{}{})
		return
	}

	meta := catalog.Metadata()
	out := make([]map[string]interface{}, 0, len(meta))
	for _, m := range meta {
		out = append(out, m.Map())
	}
	writeJSON(w, http.StatusOK, out)
}

func titleBarHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"url": viewFactory.TitleBarFilename().String(),
	})
}

func instancesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, []*host.InstanceInfo{})
		return
	}
	writeJSON(w, http.StatusOK, session.Instances())
}

// decodeInstanceRequest handles the checks shared by the instance POST endpoints.
// It writes the error response and returns false when the request is unusable.
func decodeInstanceRequest(w http.ResponseWriter, r *http.Request) (*InstanceRequest, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	var req InstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}

	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return nil, false
	}

	if session == nil || !session.HasNode(req.ID) {
		writeError(w, http.StatusNotFound, "node not found")
		return nil, false
	}

	return &req, true
}

func respondInstance(w http.ResponseWriter, id string, err error) {
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	info, _ := session.Describe(id)
	writeJSON(w, http.StatusOK, InstanceResponse{OK: true, Instance: info})
}

func instanceMuteHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInstanceRequest(w, r)
	if !ok {
		return
	}
	if req.Muted == nil {
		writeError(w, http.StatusBadRequest, "muted required")
		return
	}
	respondInstance(w, req.ID, session.SetMuted(req.ID, *req.Muted))
}

func instancePropertyHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInstanceRequest(w, r)
	if !ok {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key required")
		return
	}
	respondInstance(w, req.ID, session.SetProperty(req.ID, req.Key, req.Value))
}

func instanceEvaluateHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInstanceRequest(w, r)
	if !ok {
		return
	}
	respondInstance(w, req.ID, session.Evaluate(req.ID))
}

// NewMux returns the API routes.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/events", eventsHandler)
	mux.HandleFunc("/nodes", nodesHandler)
	mux.HandleFunc("/instances", instancesHandler)
	mux.HandleFunc("/instances/mute", instanceMuteHandler)
	mux.HandleFunc("/instances/property", instancePropertyHandler)
	mux.HandleFunc("/instances/evaluate", instanceEvaluateHandler)
	mux.HandleFunc("/appshell/titlebar", titleBarHandler)
	mux.HandleFunc("/ws/events", wsEventsHandler)
	return mux
}

// ListenAndServe starts the API server on the given port, over TLS when
// SetTLS was given a config. It blocks until the server exits.
func ListenAndServe(port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tlsConfig != nil {
		srv.TLSConfig = tlsConfig
		log.Printf("API listening on %s (TLS)\n", srv.Addr)
		return srv.ListenAndServeTLS("", "")
	}

	log.Printf("API listening on %s\n", srv.Addr)
	return srv.ListenAndServe()
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server error: %v", err)
		}
	}()
}
