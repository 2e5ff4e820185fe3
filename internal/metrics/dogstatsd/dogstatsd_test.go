package dogstatsd

import (
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Layr-Labs/state-sampler/internal/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_DogStatsdMetricsClient(t *testing.T) {
	c := newDogStatsdMetricsClient(&statsd.NoOpClient{}, 0, zap.NewNop())
	assert.Equal(t, float64(1), c.sampleRate)

	labels := []metricsTypes.MetricsLabel{{Name: "function", Value: "totalSupply"}, {Name: "kind", Value: "revert"}}
	assert.Equal(t, []string{"function:totalSupply", "kind:revert"}, c.formatLabels(labels))

	assert.NoError(t, c.Incr(metricsTypes.Metric_Incr_SamplerRevert, labels, 1))
	assert.NoError(t, c.Gauge(metricsTypes.Metric_Gauge_ResolvedEndBlock, 100, nil))
	assert.NoError(t, c.Timing(metricsTypes.Metric_Timing_CallDuration, time.Millisecond, nil))
	c.Flush()
}
