package observability

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/config"
	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// ingester is the part of the Langfuse SDK the tracer uses.
type ingester interface {
	Trace(t *model.Trace) (*model.Trace, error)
	Span(s *model.Span, parentID *string) (*model.Span, error)
	Event(e *model.Event, parentID *string) (*model.Event, error)
	Flush(ctx context.Context)
}

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  ingester
	enabled bool
	ctx     context.Context
}

var globalClient *LangfuseClient

// InitializeLangfuse initializes the global Langfuse client
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		globalClient = &LangfuseClient{enabled: false, ctx: ctx}
		return globalClient
	}

	// The SDK reads its keys and host from the environment.
	globalClient = &LangfuseClient{
		client:  langfuse.New(ctx),
		enabled: true,
		ctx:     ctx,
	}

	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)
	log.Printf("🔍 Langfuse: Public key set: %v, Secret key set: %v",
		os.Getenv("LANGFUSE_PUBLIC_KEY") != "",
		os.Getenv("LANGFUSE_SECRET_KEY") != "")
	return globalClient
}

// NewClientWithIngester builds an enabled client around an existing ingester.
func NewClientWithIngester(ctx context.Context, client ingester) *LangfuseClient {
	return &LangfuseClient{client: client, enabled: client != nil, ctx: ctx}
}

// GetClient returns the global Langfuse client
func GetClient() *LangfuseClient {
	if globalClient == nil {
		return &LangfuseClient{enabled: false, ctx: context.Background()}
	}
	return globalClient
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c.enabled && c.client != nil
}

// StartTrace starts a new trace in Langfuse. id may be empty to let the
// SDK assign one.
func (c *LangfuseClient) StartTrace(ctx context.Context, id, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	now := time.Now()
	trace, err := c.client.Trace(&model.Trace{
		ID:        id,
		Name:      name,
		Timestamp: &now,
		Metadata:  metadata,
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return &Trace{enabled: false, ctx: ctx}
	}

	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// Trace represents a Langfuse trace
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  ingester
}

// ID returns the trace id, empty when tracing is off.
func (t *Trace) ID() string {
	if !t.enabled || t.trace == nil {
		return ""
	}
	return t.trace.ID
}

// Span records a finished pipeline stage inside the trace.
func (t *Trace) Span(name string, start, end time.Time, metadata map[string]interface{}) {
	if !t.enabled {
		return
	}
	_, err := t.client.Span(&model.Span{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &start,
		EndTime:   &end,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse span: %v", err)
	}
}

// Error records a failure event inside the trace.
func (t *Trace) Error(name, message string, metadata map[string]interface{}) {
	if !t.enabled {
		return
	}
	now := time.Now()
	_, err := t.client.Event(&model.Event{
		TraceID:       t.trace.ID,
		Name:          name,
		StartTime:     &now,
		Level:         model.ObservationLevel("ERROR"),
		StatusMessage: message,
		Metadata:      metadata,
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse event: %v", err)
	}
}

// SetOutput updates the trace output and metadata.
func (t *Trace) SetOutput(output interface{}, metadata map[string]interface{}) {
	if !t.enabled || t.trace == nil {
		return
	}
	t.trace.Output = output
	t.trace.Metadata = metadata
	if _, err := t.client.Trace(t.trace); err != nil {
		log.Printf("⚠️  Failed to update Langfuse trace: %v", err)
	}
}

// Finish completes the trace and flushes data to Langfuse
func (t *Trace) Finish() {
	if t.enabled && t.client != nil {
		t.client.Flush(t.ctx)
	}
}

// ConversionTracer turns pipeline events into one trace per conversion
// with a span per stage.
type ConversionTracer struct {
	client *LangfuseClient
	mu     sync.Mutex
	traces map[string]*Trace
}

// NewConversionTracer builds a tracer. A disabled client yields a tracer
// that ignores events.
func NewConversionTracer(client *LangfuseClient) *ConversionTracer {
	return &ConversionTracer{client: client, traces: make(map[string]*Trace)}
}

// Subscribe attaches the tracer to bus.
func (c *ConversionTracer) Subscribe(bus *events.Bus) {
	if !c.client.IsEnabled() {
		return
	}
	bus.SubscribeAll(c.Handle)
}

// Open returns the number of traces still waiting for a terminal event.
func (c *ConversionTracer) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.traces)
}

// Handle processes one event.
func (c *ConversionTracer) Handle(e events.Event) {
	switch e.Type {
	case events.ConversionStarted:
		trace := c.client.StartTrace(c.client.ctx, e.RequestID, "conversion", e.Fields)
		c.mu.Lock()
		c.traces[e.RequestID] = trace
		c.mu.Unlock()
	case events.ConversionCompleted, events.ConversionFailed:
		trace := c.take(e.RequestID)
		if trace == nil {
			return
		}
		if e.Type == events.ConversionFailed {
			msg, _ := e.Fields["error"].(string)
			trace.Error("conversion.failed", msg, e.Fields)
		}
		trace.SetOutput(string(e.Type), e.Fields)
		trace.Finish()
	default:
		trace := c.lookup(e.RequestID)
		if trace == nil {
			return
		}
		trace.Span(string(e.Type), e.At.Add(-e.Duration), e.At, e.Fields)
	}
}

func (c *ConversionTracer) lookup(id string) *Trace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traces[id]
}

func (c *ConversionTracer) take(id string) *Trace {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.traces[id]
	delete(c.traces, id)
	return t
}
