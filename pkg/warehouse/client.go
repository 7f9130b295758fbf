package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// AggregateRow is one point of a telemetry aggregate series: a date, a
// country bucket (specific country or ROW), a segment label, and the
// aggregated value.
type AggregateRow struct {
	Date    time.Time
	Country string
	Segment string
	Value   float64
}

// Client is the narrow warehouse contract the pipeline depends on
type Client interface {
	QueryAggregates(ctx context.Context, sql string) ([]AggregateRow, error)
	AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close()
}

// PgxClient implements Client over a pgx connection pool
type PgxClient struct {
	log  logrus.FieldLogger
	pool *pgxpool.Pool
	cfg  *Config
}

// NewClient connects to the warehouse and verifies the connection
func NewClient(ctx context.Context, log logrus.FieldLogger, cfg *Config) (*PgxClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("create warehouse pool: %w", err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()

		return nil, fmt.Errorf("ping warehouse: %w", pingErr)
	}

	return &PgxClient{
		log:  log.WithField("component", "warehouse"),
		pool: pool,
		cfg:  cfg,
	}, nil
}

// QueryAggregates runs an aggregate query. The query must project exactly
// the columns (date, country, segment, value) in that order.
func (c *PgxClient) QueryAggregates(ctx context.Context, sql string) ([]AggregateRow, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	rows, err := c.pool.Query(queryCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("run aggregate query: %w", err)
	}
	defer rows.Close()

	var result []AggregateRow
	for rows.Next() {
		var row AggregateRow
		if scanErr := rows.Scan(&row.Date, &row.Country, &row.Segment, &row.Value); scanErr != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", scanErr)
		}
		result = append(result, row)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("read aggregate rows: %w", rowsErr)
	}

	return result, nil
}

// AppendRows appends rows to the output table. The table is append-only and
// there is no cross-run deduplication: running the same date twice produces
// duplicate rows, which is the documented policy of the output table.
func (c *PgxClient) AppendRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	insertCtx, cancel := context.WithTimeout(ctx, c.cfg.InsertTimeout)
	defer cancel()

	ident := pgx.Identifier(strings.Split(table, "."))
	copied, err := c.pool.CopyFrom(insertCtx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("append rows to %s: %w", table, err)
	}

	c.log.WithFields(logrus.Fields{
		"table": table,
		"rows":  copied,
	}).Info("Appended rows to output table")

	return copied, nil
}

// Close releases the connection pool
func (c *PgxClient) Close() {
	c.pool.Close()
}
