package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/watchgraph/internal/graph"
)

// healthHandler reports that the process is up.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// graphHandler dumps the live graph. The snapshot is taken on the scheduler
// loop so it never observes a flush half way. The format query parameter
// selects json (default), yaml or dot.
func (a *App) graphHandler(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = DumpJSON
	}
	contentType := map[string]string{
		DumpJSON: "application/json",
		DumpYAML: "application/yaml",
		DumpDot:  "text/vnd.graphviz",
	}[format]
	if contentType == "" {
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}

	var d graph.Dump
	if err := a.loop.Do(r.Context(), func() { d = a.graph.Dump() }); err != nil {
		a.logger.Warn("Graph snapshot failed.", "error", err)
		http.Error(w, "graph is not running", http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	if err := writeDump(&buf, d, format); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}

func (a *App) inspectMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/graph", a.graphHandler)
	return mux
}

// inspectServer starts the inspection HTTP server in the background.
func (a *App) inspectServer() {
	if a.config.InspectPort <= 0 {
		a.logger.Debug("Inspection server not started: disabled")
		return
	}

	addr := fmt.Sprintf(":%d", a.config.InspectPort)
	a.httpServer = &http.Server{
		Addr:    addr,
		Handler: a.inspectMux(),
	}

	go func() {
		a.logger.Info("Inspection server starting", "address", fmt.Sprintf("http://localhost%s", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Inspection server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeInspectServer(ctx context.Context) {
	if a.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.logger.Debug("Shutting down inspection server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Inspection server shutdown failed", "error", err)
		return
	}
	a.logger.Debug("Inspection server shut down gracefully.")
}
