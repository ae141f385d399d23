package fixture

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"platen/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    period     TEXT    NOT NULL,
    source     TEXT    NOT NULL,
    order_id   TEXT    NOT NULL,
    title      TEXT    NOT NULL,
    amount     INTEGER NOT NULL,
    ordered_at TEXT    NOT NULL,
    excluded   INTEGER NOT NULL DEFAULT 0,
    has_pdf    INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (period, source, order_id)
);

CREATE TABLE IF NOT EXISTS batches (
    period    TEXT    NOT NULL,
    source    TEXT    NOT NULL,
    prepared  INTEGER NOT NULL DEFAULT 0,
    completed INTEGER NOT NULL DEFAULT 0,
    count     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (period, source)
);
`

// SQLStore persists fixture state in a sqlite file so demo sessions
// survive restarts.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens (creating if needed) the sqlite store at dbPath.
func OpenSQL(dbPath string) (*SQLStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// sqlite works best over a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ensure seeds the period's sample rows on first touch.
func (s *SQLStore) ensure(period string) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE period = ?`, period).Scan(&n); err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, row := range seedRows(period) {
		_, err := s.db.Exec(
			`INSERT INTO orders (period, source, order_id, title, amount, ordered_at, excluded, has_pdf)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			period, row.Source, row.OrderID, row.Title, row.Amount, row.OrderedAt, row.Excluded, row.HasPDF,
		)
		if err != nil {
			return fmt.Errorf("seed order %s: %w", row.OrderID, err)
		}
	}
	return nil
}

func (s *SQLStore) Channels(period string) ([]Channel, error) {
	if err := s.ensure(period); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT source, order_id, title, amount, ordered_at, excluded
		 FROM orders WHERE period = ? ORDER BY source, order_id`, period)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var source string
		var order ledger.Order
		if err := rows.Scan(&source, &order.OrderID, &order.Title, &order.Amount, &order.OrderedAt, &order.Excluded); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if len(channels) == 0 || channels[len(channels)-1].Source != source {
			channels = append(channels, Channel{Source: source})
		}
		last := &channels[len(channels)-1]
		last.Orders = append(last.Orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}

	for i := range channels {
		err := s.db.QueryRow(
			`SELECT prepared, completed FROM batches WHERE period = ? AND source = ?`,
			period, channels[i].Source,
		).Scan(&channels[i].Prepared, &channels[i].Completed)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("query batch: %w", err)
		}
	}
	return channels, nil
}

func (s *SQLStore) sourceExists(period, source string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM orders WHERE period = ? AND source = ?`, period, source,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count source orders: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) ReplaceExclusions(period, source string, orderIDs []string) error {
	if err := s.ensure(period); err != nil {
		return err
	}
	if ok, err := s.sourceExists(period, source); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	for _, id := range orderIDs {
		var n int
		err := s.db.QueryRow(
			`SELECT COUNT(*) FROM orders WHERE period = ? AND source = ? AND order_id = ?`,
			period, source, id,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s for source %s", ErrUnknownOrder, id, source)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE orders SET excluded = 0 WHERE period = ? AND source = ?`, period, source,
	); err != nil {
		return fmt.Errorf("clear exclusions: %w", err)
	}
	for _, id := range orderIDs {
		if _, err := tx.Exec(
			`UPDATE orders SET excluded = 1 WHERE period = ? AND source = ? AND order_id = ?`,
			period, source, id,
		); err != nil {
			return fmt.Errorf("set exclusion: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) PrepareBatch(period, source string) (int, int, error) {
	if err := s.ensure(period); err != nil {
		return 0, 0, err
	}
	if ok, err := s.sourceExists(period, source); err != nil {
		return 0, 0, err
	} else if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	var count, excluded int
	err := s.db.QueryRow(
		`SELECT
		   COUNT(*) FILTER (WHERE excluded = 0),
		   COUNT(*) FILTER (WHERE excluded = 1)
		 FROM orders WHERE period = ? AND source = ?`, period, source,
	).Scan(&count, &excluded)
	if err != nil {
		return 0, 0, fmt.Errorf("count batch: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO batches (period, source, prepared, completed, count) VALUES (?, ?, 1, 0, ?)
		 ON CONFLICT (period, source) DO UPDATE SET prepared = 1, completed = 0, count = excluded.count`,
		period, source, count)
	if err != nil {
		return 0, 0, fmt.Errorf("store batch: %w", err)
	}
	return count, excluded, nil
}

func (s *SQLStore) batch(period, source string) (batchRow, error) {
	var b batchRow
	err := s.db.QueryRow(
		`SELECT prepared, completed, count FROM batches WHERE period = ? AND source = ?`,
		period, source,
	).Scan(&b.prepared, &b.completed, &b.count)
	if err == sql.ErrNoRows {
		return batchRow{}, nil
	}
	if err != nil {
		return batchRow{}, fmt.Errorf("query batch: %w", err)
	}
	return b, nil
}

func (s *SQLStore) RunBatch(period, source string) (int, int, error) {
	if err := s.ensure(period); err != nil {
		return 0, 0, err
	}

	b, err := s.batch(period, source)
	if err != nil {
		return 0, 0, err
	}
	if !b.prepared {
		return 0, 0, fmt.Errorf("%w for source %s", ErrNoBatch, source)
	}

	var missing int
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM orders
		 WHERE period = ? AND source = ? AND excluded = 0 AND has_pdf = 0`,
		period, source,
	).Scan(&missing)
	if err != nil {
		return 0, 0, fmt.Errorf("count missing: %w", err)
	}
	return b.count, missing, nil
}

func (s *SQLStore) CompleteBatch(period, source string) (int, error) {
	if err := s.ensure(period); err != nil {
		return 0, err
	}

	b, err := s.batch(period, source)
	if err != nil {
		return 0, err
	}
	if !b.prepared {
		return 0, fmt.Errorf("%w for source %s", ErrNoBatch, source)
	}

	if _, err := s.db.Exec(
		`UPDATE batches SET completed = 1 WHERE period = ? AND source = ?`, period, source,
	); err != nil {
		return 0, fmt.Errorf("complete batch: %w", err)
	}
	return b.count, nil
}
