package metrics

import (
	"time"

	"github.com/Layr-Labs/state-sampler/internal/config"
	"github.com/Layr-Labs/state-sampler/internal/metrics/dogstatsd"
	"github.com/Layr-Labs/state-sampler/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/state-sampler/internal/metrics/prometheus"
	"go.uber.org/zap"
)

type MetricsSink struct {
	clients []metricsTypes.IMetricsClient
	config  *MetricsSinkConfig
}

type MetricsSinkConfig struct {
	DefaultLabels []metricsTypes.MetricsLabel
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	if cfg.DefaultLabels == nil {
		cfg.DefaultLabels = []metricsTypes.MetricsLabel{}
	}
	return &MetricsSink{
		clients: clients,
		config:  cfg,
	}, nil
}

// NewNoopMetricsSink returns a sink without clients.
func NewNoopMetricsSink() *MetricsSink {
	ms, _ := NewMetricsSink(&MetricsSinkConfig{}, nil)
	return ms
}

func mergeLabels(labels []metricsTypes.MetricsLabel, defaultLabels []metricsTypes.MetricsLabel) []metricsTypes.MetricsLabel {
	if labels == nil {
		return defaultLabels
	}
	mergedLabels := make([]metricsTypes.MetricsLabel, 0, len(defaultLabels)+len(labels))
	mergedLabels = append(mergedLabels, defaultLabels...)
	mergedLabels = append(mergedLabels, labels...)
	return mergedLabels
}

func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	mergedLabels := mergeLabels(labels, ms.config.DefaultLabels)
	for _, client := range ms.clients {
		if err := client.Incr(name, mergedLabels, value); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	mergedLabels := mergeLabels(labels, ms.config.DefaultLabels)
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, mergedLabels); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	mergedLabels := mergeLabels(labels, ms.config.DefaultLabels)
	for _, client := range ms.clients {
		if err := client.Timing(name, value, mergedLabels); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}

// InitMetricsSinksFromConfig builds the enabled metrics clients. The prometheus client, when
// enabled, is also returned so its registry can be served.
func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, *prometheus.PrometheusMetricsClient, error) {
	clients := []metricsTypes.IMetricsClient{}

	if cfg.DataDogConfig.StatsdConfig.Enabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(cfg.DataDogConfig.StatsdConfig.Url, cfg.DataDogConfig.StatsdConfig.SampleRate, l)
		if err != nil {
			return nil, nil, err
		}
		clients = append(clients, dd)
	}

	var pm *prometheus.PrometheusMetricsClient
	if cfg.PrometheusConfig.Enabled {
		var err error
		pm, err = prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		if err != nil {
			return nil, nil, err
		}
		clients = append(clients, pm)
	}

	return clients, pm, nil
}
