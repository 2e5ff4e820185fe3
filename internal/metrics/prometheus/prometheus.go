package prometheus

import (
	"strings"
	"time"

	"github.com/Layr-Labs/state-sampler/internal/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type PrometheusMetricsConfig struct {
	Metrics map[metricsTypes.MetricsType][]metricsTypes.MetricsTypeConfig
}

type PrometheusMetricsClient struct {
	logger   *zap.Logger
	config   *PrometheusMetricsConfig
	Registry *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	labelNames map[string][]string
}

func NewPrometheusMetricsClient(config *PrometheusMetricsConfig, l *zap.Logger) (*PrometheusMetricsClient, error) {
	client := &PrometheusMetricsClient{
		config:   config,
		logger:   l,
		Registry: prometheus.NewRegistry(),

		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labelNames: make(map[string][]string),
	}

	if err := client.initializeTypes(); err != nil {
		return nil, err
	}

	return client, nil
}

// metricName maps dotted metric names onto the prometheus naming scheme.
func metricName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func (pmc *PrometheusMetricsClient) logExistingMetric(t metricsTypes.MetricsType, metric metricsTypes.MetricsTypeConfig) {
	pmc.logger.Sugar().Warnw("Prometheus metric already exists for type",
		zap.String("type", string(t)),
		zap.String("name", metric.Name),
	)
}

func (pmc *PrometheusMetricsClient) initializeTypes() error {
	for t, types := range pmc.config.Metrics {
		for _, mt := range types {
			var collector prometheus.Collector
			switch t {
			case metricsTypes.MetricsType_Incr:
				if _, ok := pmc.counters[mt.Name]; ok {
					pmc.logExistingMetric(t, mt)
					continue
				}
				pmc.counters[mt.Name] = prometheus.NewCounterVec(prometheus.CounterOpts{
					Name: metricName(mt.Name),
				}, mt.Labels)
				collector = pmc.counters[mt.Name]
			case metricsTypes.MetricsType_Gauge:
				if _, ok := pmc.gauges[mt.Name]; ok {
					pmc.logExistingMetric(t, mt)
					continue
				}
				pmc.gauges[mt.Name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
					Name: metricName(mt.Name),
				}, mt.Labels)
				collector = pmc.gauges[mt.Name]
			case metricsTypes.MetricsType_Timing:
				if _, ok := pmc.histograms[mt.Name]; ok {
					pmc.logExistingMetric(t, mt)
					continue
				}
				pmc.histograms[mt.Name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
					Name: metricName(mt.Name),
				}, mt.Labels)
				collector = pmc.histograms[mt.Name]
			default:
				continue
			}
			pmc.labelNames[mt.Name] = mt.Labels
			if err := pmc.Registry.Register(collector); err != nil {
				pmc.logger.Sugar().Errorw("Failed to register prometheus metric",
					zap.String("name", mt.Name),
					zap.Error(err),
				)
				return err
			}
		}
	}
	return nil
}

// formatLabels sets every label the metric was registered with, empty when the caller did
// not provide it. Labels the metric does not know are passed through and rejected by the vec.
func (pmc *PrometheusMetricsClient) formatLabels(name string, labels []metricsTypes.MetricsLabel) prometheus.Labels {
	l := make(prometheus.Labels)
	for _, n := range pmc.labelNames[name] {
		l[n] = ""
	}
	for _, label := range labels {
		l[label.Name] = label.Value
	}
	return l
}

func (pmc *PrometheusMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	m, ok := pmc.counters[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus incr not found",
			zap.String("name", name),
		)
		return nil
	}
	c, err := m.GetMetricWith(pmc.formatLabels(name, labels))
	if err != nil {
		return err
	}
	c.Add(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.gauges[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus gauge not found",
			zap.String("name", name),
		)
		return nil
	}
	g, err := m.GetMetricWith(pmc.formatLabels(name, labels))
	if err != nil {
		return err
	}
	g.Set(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return pmc.Histogram(name, value, labels)
}

func (pmc *PrometheusMetricsClient) Histogram(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.histograms[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus histogram not found",
			zap.String("name", name),
		)
		return nil
	}
	h, err := m.GetMetricWith(pmc.formatLabels(name, labels))
	if err != nil {
		return err
	}
	h.Observe(float64(value.Milliseconds()))
	return nil
}

// Flush is a no-op, prometheus is scraped.
func (pmc *PrometheusMetricsClient) Flush() {}
