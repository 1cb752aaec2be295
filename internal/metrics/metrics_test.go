package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
)

type recordingPutter struct {
	mu    sync.Mutex
	names []string
	units []string
}

func (p *recordingPutter) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range in.MetricData {
		p.names = append(p.names, aws.ToString(d.MetricName))
		p.units = append(p.units, string(d.Unit))
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestNewClient_DisabledOutsideProduction(t *testing.T) {
	c, err := NewClient(context.Background(), "development")
	require.NoError(t, err)
	assert.False(t, c.enabled)
	assert.NotPanics(t, func() {
		c.RecordConversion("bracket", "bold", true, time.Second, 3, 0)
	})
}

func TestClient_Subscribe(t *testing.T) {
	p := &recordingPutter{}
	c := &Client{client: p, enabled: true, environment: "test", sync: true}
	bus := events.NewBus()
	c.Subscribe(bus)

	bus.Publish(events.Event{Type: events.FormatDetected, Fields: events.Fields{"format": "bracket", "confidence": 0.8}})
	bus.Publish(events.Event{Type: events.ParseCompleted})
	bus.Publish(events.Event{
		Type:     events.ConversionCompleted,
		Duration: 12 * time.Millisecond,
		Fields:   events.Fields{"source_format": "bracket", "target_format": "bold", "chords": 4, "errors": 1},
	})
	bus.Publish(events.Event{Type: events.ConversionFailed, Fields: events.Fields{"errors": 1}})

	assert.Equal(t, []string{
		"DetectionConfidence",
		"Conversions", "ConversionDuration", "ConversionChords", "ConversionLineErrors",
		"Conversions", "ConversionDuration", "ConversionLineErrors",
	}, p.names)
	assert.Equal(t, "Percent", p.units[0])
}

func TestClient_RecordAPIRequest(t *testing.T) {
	p := &recordingPutter{}
	c := &Client{client: p, enabled: true, environment: "test", sync: true}
	c.RecordAPIRequest("/api/v1/convert", 200, time.Millisecond)
	c.RecordAPIRequest("/api/v1/convert", 503, time.Millisecond)
	assert.Equal(t, []string{"APIRequests", "APILatency", "APIErrors", "APILatency"}, p.names)
}

func TestCounters(t *testing.T) {
	bus := events.NewBus()
	c := NewCounters()
	c.Subscribe(bus)

	bus.Publish(events.Event{Type: events.ConversionStarted})
	bus.Publish(events.Event{
		Type:     events.ConversionCompleted,
		Duration: 10 * time.Millisecond,
		Fields: events.Fields{
			"source_format": "bracket", "target_format": "bold",
			"detected": true, "transposed": true, "errors": 2,
		},
	})
	bus.Publish(events.Event{
		Type:     events.ConversionFailed,
		Duration: 30 * time.Millisecond,
		Fields:   events.Fields{"target_format": "bold", "stage": "validate", "errors": 1},
	})

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.Total)
	assert.Equal(t, int64(1), s.Succeeded)
	assert.Equal(t, int64(1), s.Failed)
	assert.Equal(t, int64(1), s.Detected)
	assert.Equal(t, int64(1), s.Transposed)
	assert.Equal(t, int64(3), s.LineErrors)
	assert.InDelta(t, 20.0, s.AvgDurationMS, 1e-9)
	assert.Equal(t, map[string]int64{"bracket": 1}, s.BySource)
	assert.Equal(t, map[string]int64{"bold": 2}, s.ByTarget)
	assert.Equal(t, map[string]int64{"validate": 1}, s.FailedStages)

	s.ByTarget["bold"] = 99
	assert.Equal(t, int64(2), c.Snapshot().ByTarget["bold"])
}

func TestSentryMetrics_SubscribeWithoutClient(t *testing.T) {
	bus := events.NewBus()
	NewSentryMetrics().Subscribe(context.Background(), bus)
	assert.NotPanics(t, func() {
		for _, typ := range events.Types {
			bus.Publish(events.Event{Type: typ, RequestID: "r1", Fields: events.Fields{"stage": "parse"}})
		}
	})
	assert.Equal(t, "parse.completed", stageName(events.ParseCompleted))
	assert.Equal(t, "completed", stageName(events.ConversionCompleted))
}
