package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/watchgraph/internal/component"
	"github.com/vk/watchgraph/internal/graph"
	"github.com/vk/watchgraph/internal/metrics"
	"github.com/vk/watchgraph/internal/scheduler"
	"github.com/zishang520/socket.io-client-go/socket"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	metrics  *metrics.Collector
	registry *prometheus.Registry

	loop      *scheduler.Loop
	graph     *graph.Graph
	env       *component.Environment
	trace     *socket.Socket
	instances []*component.Instance

	httpServer *http.Server
}

// NewApp creates an application that writes its dump to outW and its logs
// to logW. Nothing is loaded until Run.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	collector := metrics.New()
	reg := prometheus.NewRegistry()
	if err := collector.Register(reg); err != nil {
		// A fresh registry cannot hold duplicates.
		panic(err)
	}
	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		metrics:  collector,
		registry: reg,
	}
}

// Instances returns the root instances rendered by the last Run.
func (a *App) Instances() []*component.Instance {
	return a.instances
}
