package internal_agent

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sierrasoftworks/humane-errors-go"
	"go.uber.org/zap"
)

const (
	apiReadHeaderTimeout = 5 * time.Second
	apiShutdownTimeout   = 5 * time.Second
)

// Handler serves the published state: /status as JSON, /metrics for
// prometheus and /healthz.
func (a *Agent) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(agent.StatusPath, a.handleStatus)
	mux.HandleFunc(agent.HealthPath, handleHealth)
	mux.Handle(agent.MetricsPath, promhttp.Handler())
	return mux
}

func (a *Agent) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Status()); err != nil {
		log.FromContext(r.Context()).Warn("Failed to write status response", zap.Error(err))
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// runAPI serves Handler on Listen.Http until ctx is cancelled.
func (a *Agent) runAPI(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.config.Listen.Http)
	if err != nil {
		return humane.Wrap(err, "failed to create http listener",
			"ensure no other process is bound to listen.http and that the address is valid",
		)
	}

	return a.serveAPI(ctx, listener)
}

func (a *Agent) serveAPI(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: apiReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), apiShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.FromContext(ctx).Warn("Failed to shut down http server", zap.Error(err))
		}
	}()

	log.FromContext(ctx).Info("Starting http server", zap.String("address", listener.Addr().String()))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return humane.Wrap(err, "failed to serve http api",
			"check the agent logs and ensure listen.http is reachable",
		)
	}

	return ctx.Err()
}
