package watch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters for the watch service. The one-shot CLI paths do
// not register metrics; only the long-running service carries them.
type Metrics struct {
	Scans            prometheus.Counter
	FilesAnalyzed    prometheus.Counter
	ParseErrors      prometheus.Counter
	ReportViolations prometheus.Gauge
}

// NewMetrics registers the watch metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Scans: factory.NewCounter(prometheus.CounterOpts{
			Name: "mirror_scans_total",
			Help: "Number of analysis passes run by the watch service.",
		}),
		FilesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mirror_files_analyzed_total",
			Help: "Number of files analyzed across all passes.",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "mirror_parse_errors_total",
			Help: "Number of parse_error findings across all passes.",
		}),
		ReportViolations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mirror_report_violations",
			Help: "Violations in the most recently written report.",
		}),
	}
}

// ServeMetrics runs a /metrics HTTP endpoint until ctx is canceled.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
