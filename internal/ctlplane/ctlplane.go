// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ctlplane exposes an introspection HTTP API over the
// pipeline's rule store, trigger activations, and batch groups (§6
// "control-plane" expansion). Apart from the per-rule enable/disable
// routes, which flip a rule's enabled flag, it only reads state; it
// never touches the data-plane's fail-open semantics and implements no
// routing or discovery (non-goals in spec.md §2 stay intact). Grounded
// on the teacher's internal/ebpf/controlplane package's use of
// gorilla/mux.
package ctlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/mavproxy/internal/batch"
	"grimm.is/mavproxy/internal/config"
	"grimm.is/mavproxy/internal/metrics"
	"grimm.is/mavproxy/internal/rules"
	"grimm.is/mavproxy/internal/trigger"
)

// Server is the control-plane HTTP API.
type Server struct {
	store      *rules.Store
	triggers   *trigger.Engine
	batches    *batch.Manager
	httpServer *http.Server
	router     *mux.Router

	configPath string
}

// New builds a Server bound to addr, routing over store, triggers, and
// the batch manager. configPath is the HCL document the running rule
// set was loaded from; it's re-read (not re-applied) by
// handleDiffConfig to preview what a reload would change.
func New(addr, configPath string, store *rules.Store, triggers *trigger.Engine, batches *batch.Manager) *Server {
	s := &Server{
		store:      store,
		triggers:   triggers,
		batches:    batches,
		router:     mux.NewRouter(),
		configPath: configPath,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rules", s.handleListRules).Methods("GET")
	api.HandleFunc("/rules/{name}/enable", s.handleEnableRule).Methods("POST")
	api.HandleFunc("/rules/{name}/disable", s.handleDisableRule).Methods("POST")
	api.HandleFunc("/activations", s.handleListActivations).Methods("GET")
	api.HandleFunc("/batches", s.handleListBatches).Methods("GET")
	api.HandleFunc("/config/diff", s.handleDiffConfig).Methods("GET")

	s.router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// Run starts serving and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

type ruleView struct {
	Name        string   `json:"name"`
	MessageType string   `json:"message_type,omitempty"`
	Priority    int      `json:"priority"`
	Direction   string   `json:"direction"`
	Actions     []string `json:"actions"`
	Enabled     bool     `json:"enabled"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	views := make([]ruleView, 0, len(s.store.Rules()))
	for _, rule := range s.store.Rules() {
		actions := make([]string, len(rule.Actions))
		for i, a := range rule.Actions {
			actions[i] = string(a)
		}
		views = append(views, ruleView{
			Name:        rule.Name,
			MessageType: rule.MessageType,
			Priority:    rule.Priority,
			Direction:   string(rule.Direction),
			Actions:     actions,
			Enabled:     rule.Enabled(),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleEnableRule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.store.Enable(name) {
		http.Error(w, "unknown rule "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": true})
}

func (s *Server) handleDisableRule(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.store.Disable(name) {
		http.Error(w, "unknown rule "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": false})
}

func (s *Server) handleListActivations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.triggers.Activations())
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.batches.Groups())
}

// handleDiffConfig re-reads the config file at s.configPath without
// applying it, and returns a unified diff against the running rule set
// (§6 expansion: operators preview a reload before restarting the
// process, which is what actually applies a new document).
func (s *Server) handleDiffConfig(w http.ResponseWriter, r *http.Request) {
	if s.configPath == "" {
		http.Error(w, "no config path configured", http.StatusServiceUnavailable)
		return
	}
	loaded, err := config.Load(s.configPath)
	if err != nil {
		http.Error(w, "reading config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	diff, err := config.DiffRulesets(s.store.Rules(), loaded.Rules, "running", "on-disk")
	if err != nil {
		http.Error(w, "diffing rule sets: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if diff == "" {
		diff = "no changes\n"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(diff))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
