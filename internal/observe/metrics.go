// Package observe records per-turn metrics through OpenTelemetry and exposes
// them for Prometheus scraping.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "voxdialog"

const (
	StageRecord    = "record"
	StageRecognize = "recognize"
	StageDialogue  = "dialogue"
	StageSpeech    = "speech"
	StageTurn      = "turn"
)

const (
	TurnOK     = "ok"
	TurnEmpty  = "empty"
	TurnFailed = "failed"
)

type Metrics struct {
	// StageDuration is recorded with attribute "stage".
	StageDuration metric.Float64Histogram
	// Turns is counted with attribute "status".
	Turns      metric.Int64Counter
	WebLookups metric.Int64Counter
}

// seconds; a turn on local models easily takes tens of seconds
var stageBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("vox.stage.duration",
		metric.WithDescription("Duration of each stage of a dialogue turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("vox.turns",
		metric.WithDescription("Dialogue turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.WebLookups, err = m.Int64Counter("vox.web.lookups",
		metric.WithDescription("Turns that fetched web search results."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Nop returns metrics that discard everything.
func Nop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

func (m *Metrics) Stage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) Turn(ctx context.Context, status string) {
	m.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) WebLookup(ctx context.Context) {
	m.WebLookups.Add(ctx, 1)
}
