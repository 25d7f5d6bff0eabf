package export

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS %s (
    RunID      String,
    ExportedAt DateTime,
    Seed       Int64,
    TimeUs     Int64,
    Load       Float64,
    Dropped    UInt64
) ENGINE = MergeTree()
ORDER BY (RunID, TimeUs);
`

// DefaultTable is used when ClickHouseConfig.Table is empty.
const DefaultTable = "flood_metrics"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClickHouseConfig holds the connection parameters of the series store.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Table    string
}

// ClickHouseWriter inserts run series into a ClickHouse table, one row per sample.
type ClickHouseWriter struct {
	conn  driver.Conn
	table string
}

// NewClickHouseWriter connects and makes sure the table exists.
func NewClickHouseWriter(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseWriter, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", table)
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Exec(ctx, fmt.Sprintf(createTableStatement, table)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	logrus.Infof("Connected to ClickHouse at %s:%d, table %s ready", cfg.Host, cfg.Port, table)
	return &ClickHouseWriter{conn: conn, table: table}, nil
}

func connect(ctx context.Context, cfg ClickHouseConfig) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
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
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Write inserts every sample of run under runID in a single batch.
func (w *ClickHouseWriter) Write(ctx context.Context, runID string, run Run) error {
	rows := Rows(runID, time.Now().UTC(), run)
	if len(rows) == 0 {
		return nil // nothing to write
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(r.RunID, r.ExportedAt, r.Seed, r.TimeUs, r.Load, r.Dropped); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append sample at %d to batch: %w", r.TimeUs, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	logrus.Infof("Wrote %d samples to ClickHouse table %s for run '%s'", len(rows), w.table, runID)
	return nil
}

// Close releases the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// Row is one ClickHouse row, in table column order.
type Row struct {
	RunID      string
	ExportedAt time.Time
	Seed       int64
	TimeUs     int64
	Load       float64
	Dropped    uint64
}

// Rows flattens run into table rows.
func Rows(runID string, exportedAt time.Time, run Run) []Row {
	rows := make([]Row, 0, len(run.Points))
	for _, p := range run.Points {
		rows = append(rows, Row{
			RunID:      runID,
			ExportedAt: exportedAt,
			Seed:       run.Config.Seed,
			TimeUs:     p.TimeUs,
			Load:       p.Load,
			Dropped:    uint64(p.Dropped),
		})
	}
	return rows
}
