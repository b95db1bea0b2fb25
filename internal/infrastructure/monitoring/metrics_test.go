package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextGaugeReadsLiveCount(t *testing.T) {
	m := NewMetrics()

	count := 0
	m.RegisterContextGauge(func() float64 { return float64(count) })
	count = 3

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() != "renderbox_contexts_active" {
			continue
		}
		found = true
		require.Len(t, f.GetMetric(), 1)
		assert.Equal(t, 3.0, f.GetMetric()[0].GetGauge().GetValue(),
			"gauge must report the source count at scrape time")
	}
	require.True(t, found, "renderbox_contexts_active must be registered")
}
