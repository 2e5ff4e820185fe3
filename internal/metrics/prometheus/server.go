package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type PrometheusServerConfig struct {
	Port int
}

type PrometheusServer struct {
	config     *PrometheusServerConfig
	logger     *zap.Logger
	gatherer   prometheus.Gatherer
	httpServer *http.Server
}

func NewPrometheusServer(cfg *PrometheusServerConfig, gatherer prometheus.Gatherer, l *zap.Logger) *PrometheusServer {
	return &PrometheusServer{
		config:   cfg,
		logger:   l,
		gatherer: gatherer,
	}
}

// Start serves /metrics until ctx is cancelled.
func (ps *PrometheusServer) Start(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(ps.gatherer, promhttp.HandlerOpts{}))

	ps.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", ps.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ps.logger.Sugar().Info("Shutting down prometheus server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ps.httpServer.Shutdown(shutdownCtx); err != nil {
			ps.logger.Sugar().Errorw("Failed to shutdown prometheus server", zap.Error(err))
		}
	}()
	go func() {
		ps.logger.Sugar().Infow("Starting prometheus server", zap.Int("port", ps.config.Port))
		if err := ps.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ps.logger.Sugar().Errorw("Prometheus server stopped", zap.Error(err))
		}
	}()
}
