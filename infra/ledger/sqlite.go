package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/virtualzone/landroid-bridge/core/schedule"
)

// SQLiteLedger persists planned minutes per date in a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates the database at path and ensures the
// schema. Creation is idempotent.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS schedule (
        date TEXT PRIMARY KEY,
        minutes INT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteLedger{db: db}, nil
}

// UpsertDurations overwrites the stored minutes for each entry's date. The
// batch runs in a single transaction; a mid-batch failure leaves the ledger
// untouched.
func (l *SQLiteLedger) UpsertDurations(ctx context.Context, entries []schedule.Entry) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO schedule (date, minutes) VALUES (?, ?)`,
			e.Date.Format(schedule.DateFormat), e.Minutes)
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				return fmt.Errorf("rollback: %v (upsert err: %w)", rerr, err)
			}
			return err
		}
	}
	return tx.Commit()
}

// SumMinutes returns the total minutes in [from, to] inclusive. Dates
// without a row contribute zero.
func (l *SQLiteLedger) SumMinutes(ctx context.Context, from, to time.Time) (int, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(minutes), 0) FROM schedule WHERE date >= ? AND date <= ?`,
		from.Format(schedule.DateFormat), to.Format(schedule.DateFormat))
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error { return l.db.Close() }
