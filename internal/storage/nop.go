package storage

import (
	"NetSentry/internal/model"
	"context"
)

// NopSink is used when persistence is disabled; every operation succeeds and
// records nothing.
type NopSink struct{}

func (NopSink) Append(context.Context, *model.DetectionRecord) error { return nil }

func (NopSink) Recent(context.Context, int) ([]model.DetectionRecord, error) {
	return nil, nil
}

func (NopSink) Counts(context.Context) (model.CountStats, error) {
	return model.CountStats{}, nil
}

func (NopSink) Timeseries(context.Context, int) ([]model.TimePoint, error) {
	return nil, nil
}

func (NopSink) SeverityBreakdown(context.Context) (model.SeverityCounts, error) {
	return model.SeverityCounts{}, nil
}

var _ model.Sink = NopSink{}
