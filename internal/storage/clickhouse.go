package storage

import (
	"NetSentry/internal/config"
	"NetSentry/internal/model"
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS detections (
    Timestamp    DateTime64(3),
    SrcIP        String,
    DstIP        String,
    SrcPort      UInt16,
    DstPort      UInt16,
    Protocol     String,
    AnomalyScore Float64,
    IsAnomaly    UInt8,
    Severity     String,
    RawPacket    String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp);
`

// ClickHouseSink implements the model.Sink interface for ClickHouse. Each
// Append prepares its own batch, so concurrent detector workers can write
// without sharing mutable statement state.
type ClickHouseSink struct {
	conn driver.Conn
}

// NewClickHouseSink connects to ClickHouse and ensures the detections table
// exists.
func NewClickHouseSink(cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseSink{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Append inserts one detection record.
func (s *ClickHouseSink) Append(ctx context.Context, rec *model.DetectionRecord) error {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO detections")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	var isAnomaly uint8
	if rec.IsAnomaly {
		isAnomaly = 1
	}
	if err := batch.Append(
		rec.Timestamp,
		rec.SrcIP,
		rec.DstIP,
		rec.SrcPort,
		rec.DstPort,
		rec.Protocol,
		rec.Score,
		isAnomaly,
		string(rec.Severity),
		rec.RawPacket,
	); err != nil {
		return fmt.Errorf("failed to append record to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *ClickHouseSink) Recent(ctx context.Context, limit int) ([]model.DetectionRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT Timestamp, SrcIP, DstIP, SrcPort, DstPort, Protocol, AnomalyScore, IsAnomaly, Severity
		FROM detections ORDER BY Timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent detections: %w", err)
	}
	defer rows.Close()

	var out []model.DetectionRecord
	for rows.Next() {
		var (
			rec       model.DetectionRecord
			isAnomaly uint8
			severity  string
		)
		if err := rows.Scan(&rec.Timestamp, &rec.SrcIP, &rec.DstIP, &rec.SrcPort, &rec.DstPort,
			&rec.Protocol, &rec.Score, &isAnomaly, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan detection row: %w", err)
		}
		rec.IsAnomaly = isAnomaly == 1
		rec.Severity = model.Severity(severity)
		out = append(out, rec)
	}
	return out, nil
}

// Counts returns total/anomaly counts and the overall detection rate.
func (s *ClickHouseSink) Counts(ctx context.Context) (model.CountStats, error) {
	var stats model.CountStats
	row := s.conn.QueryRow(ctx, `SELECT count(), countIf(IsAnomaly = 1) FROM detections`)
	if err := row.Scan(&stats.Total, &stats.Anomalies); err != nil {
		return stats, fmt.Errorf("failed to scan counts: %w", err)
	}
	if stats.Total > 0 {
		stats.Rate = float64(stats.Anomalies) / float64(stats.Total) * 100
	}
	return stats, nil
}

// Timeseries returns the last limit scores in chronological order.
func (s *ClickHouseSink) Timeseries(ctx context.Context, limit int) ([]model.TimePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT Timestamp, AnomalyScore, IsAnomaly FROM
			(SELECT Timestamp, AnomalyScore, IsAnomaly FROM detections ORDER BY Timestamp DESC LIMIT ?)
		ORDER BY Timestamp ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeseries: %w", err)
	}
	defer rows.Close()

	var out []model.TimePoint
	for rows.Next() {
		var (
			p         model.TimePoint
			isAnomaly uint8
		)
		if err := rows.Scan(&p.Timestamp, &p.Score, &isAnomaly); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries row: %w", err)
		}
		p.IsAnomaly = isAnomaly == 1
		out = append(out, p)
	}
	return out, nil
}

// SeverityBreakdown counts recorded anomalies by severity.
func (s *ClickHouseSink) SeverityBreakdown(ctx context.Context) (model.SeverityCounts, error) {
	var counts model.SeverityCounts
	rows, err := s.conn.Query(ctx, `
		SELECT Severity, count() FROM detections WHERE IsAnomaly = 1 GROUP BY Severity`)
	if err != nil {
		return counts, fmt.Errorf("failed to query severity breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			severity string
			n        uint64
		)
		if err := rows.Scan(&severity, &n); err != nil {
			return counts, fmt.Errorf("failed to scan severity row: %w", err)
		}
		switch model.Severity(severity) {
		case model.SeverityHigh:
			counts.High = n
		case model.SeverityMedium:
			counts.Medium = n
		case model.SeverityLow:
			counts.Low = n
		}
		counts.Total += n
	}
	return counts, nil
}

// Close shuts down the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

var _ model.Sink = (*ClickHouseSink)(nil)
