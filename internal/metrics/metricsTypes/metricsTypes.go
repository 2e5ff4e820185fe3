package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_SamplerCall   = "sampler.calls"
	Metric_Incr_SamplerRevert = "sampler.reverts"
	Metric_Incr_SamplerSample = "sampler.samples"

	Metric_Gauge_ResolvedEndBlock = "sampler.resolvedEndBlock"

	Metric_Timing_CallDuration = "sampler.call.duration"
	Metric_Timing_ScanDuration = "sampler.scan.duration"
)

// Labels every sampler metric is registered with. Clients that need a fixed label set fill
// the ones a caller leaves out with an empty value.
var (
	Label_Contract = "contract"
	Label_Function = "function"
	Label_Kind     = "kind"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_SamplerCall,
			Labels: []string{Label_Contract, Label_Function},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SamplerRevert,
			Labels: []string{Label_Contract, Label_Function, Label_Kind},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_SamplerSample,
			Labels: []string{Label_Contract, Label_Function},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_ResolvedEndBlock,
			Labels: []string{Label_Contract, Label_Function},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_CallDuration,
			Labels: []string{Label_Contract, Label_Function},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_ScanDuration,
			Labels: []string{Label_Contract, Label_Function},
		},
	},
}
