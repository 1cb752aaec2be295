package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
)

const (
	namespace                = "ChordSheet/API"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// putter is the part of the CloudWatch client the recorder uses.
type putter interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      putter
	enabled     bool
	environment string
	// sync makes recording block, for tests.
	sync bool
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

func (m *Client) run(fn func(ctx context.Context)) {
	if m.sync {
		fn(context.Background())
		return
	}
	go fn(context.Background())
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	m.run(func(ctx context.Context) {
		// Determine if success or error
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := []types.Dimension{
			{
				Name:  aws.String("Endpoint"),
				Value: aws.String(endpoint),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		// Record count
		if err := m.putMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record %s metric: %v", metricName, err)
		}

		// Record duration
		latencyMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "APILatency", latencyMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record APILatency metric: %v", err)
		}
	})
}

// RecordConversion records a finished conversion: count, duration and
// the number of chords and line errors it carried
func (m *Client) RecordConversion(source, target string, success bool, duration time.Duration, chords, lineErrors int) {
	if !m.enabled {
		return
	}

	m.run(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{
				Name:  aws.String("SourceFormat"),
				Value: aws.String(orUnknown(source)),
			},
			{
				Name:  aws.String("TargetFormat"),
				Value: aws.String(orUnknown(target)),
			},
			{
				Name:  aws.String("Success"),
				Value: aws.String(boolToString(success)),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		if err := m.putMetric(ctx, "Conversions", 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record Conversions metric: %v", err)
		}

		durationMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "ConversionDuration", durationMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record ConversionDuration metric: %v", err)
		}

		if chords > 0 {
			if err := m.putMetric(ctx, "ConversionChords", float64(chords), types.StandardUnitCount, dimensions); err != nil {
				log.Printf("Failed to record ConversionChords metric: %v", err)
			}
		}

		if lineErrors > 0 {
			if err := m.putMetric(ctx, "ConversionLineErrors", float64(lineErrors), types.StandardUnitCount, dimensions); err != nil {
				log.Printf("Failed to record ConversionLineErrors metric: %v", err)
			}
		}
	})
}

// RecordDetection records the confidence of an automatic format detection
func (m *Client) RecordDetection(format string, confidence float64) {
	if !m.enabled {
		return
	}

	m.run(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{
				Name:  aws.String("Format"),
				Value: aws.String(orUnknown(format)),
			},
			{
				Name:  aws.String("Environment"),
				Value: aws.String(m.environment),
			},
		}

		if err := m.putMetric(ctx, "DetectionConfidence", confidence*100, types.StandardUnitPercent, dimensions); err != nil {
			log.Printf("Failed to record DetectionConfidence metric: %v", err)
		}
	})
}

// Subscribe records detection and conversion events from bus
func (m *Client) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.FormatDetected, func(ev events.Event) {
		format, _ := ev.Fields["format"].(string)
		confidence, _ := ev.Fields["confidence"].(float64)
		m.RecordDetection(format, confidence)
	})
	record := func(ev events.Event) {
		source, _ := ev.Fields["source_format"].(string)
		target, _ := ev.Fields["target_format"].(string)
		chords, _ := ev.Fields["chords"].(int)
		lineErrors, _ := ev.Fields["errors"].(int)
		m.RecordConversion(source, target, ev.Type == events.ConversionCompleted, ev.Duration, chords, lineErrors)
	}
	bus.Subscribe(events.ConversionCompleted, record)
	bus.Subscribe(events.ConversionFailed, record)
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	_ context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	// Create context with timeout for CloudWatch call
	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
