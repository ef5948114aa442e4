package obs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics_DoesNothing(t *testing.T) {
	var m NoopMetrics
	assert.NotPanics(t, func() {
		m.IncCounter("x", nil)
		m.ObserveHistogram("y", 1.0, map[string]string{"k": "v"})
	})
}

func TestMockMetrics_CountsAndRecords(t *testing.T) {
	m := NewMockMetrics()
	m.IncCounter("ingest.requests", nil)
	m.IncCounter("ingest.requests", nil)
	m.ObserveHistogram("ingest.duration_ms", 12.5, nil)
	m.ObserveHistogram("ingest.duration_ms", 7.0, nil)

	assert.Equal(t, 2, m.Counters["ingest.requests"])
	assert.Equal(t, []float64{12.5, 7.0}, m.Hists["ingest.duration_ms"])
}

func TestOtelMetrics_NilReceiverSafe(t *testing.T) {
	var o *OtelMetrics
	assert.NotPanics(t, func() {
		o.IncCounter("x", nil)
		o.ObserveHistogram("y", 1, nil)
	})
}

func TestOtelMetrics_CachesInstrumentHandles(t *testing.T) {
	o := NewOtelMetrics("test-meter")
	c1, ok1 := o.counter("same.name")
	c2, ok2 := o.counter("same.name")
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, c1, c2)
}
