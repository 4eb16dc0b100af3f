package sqlitestorage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/sgostarter/i/l"
	"github.com/sgostarter/libreducer/sink"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	key         TEXT    NOT NULL,
	session_id  INTEGER NOT NULL,
	value       REAL    NOT NULL,
	ts          REAL    NOT NULL,
	at          INTEGER,
	received_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_records_key ON records (key, id);
`

// NewSQLiteStorage opens (and creates) the database at dsn. Times are kept as unix nanoseconds.
func NewSQLiteStorage(dsn string, logger l.Wrapper) (storage *SQLiteStorage, err error) {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	logger = logger.WithFields(l.StringField(l.ClsKey, "SQLiteStorage"))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		err = errors.Wrap(err, "open sqlite")

		return
	}

	// one connection, so in memory databases are shared and writes never see SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()

		err = errors.Wrap(err, "create schema")

		return
	}

	storage = &SQLiteStorage{
		logger: logger,
		db:     db,
	}

	return
}

type SQLiteStorage struct {
	logger l.Wrapper
	db     *sql.DB
}

func (impl *SQLiteStorage) Close() error {
	return impl.db.Close()
}

func (impl *SQLiteStorage) Save(ctx context.Context, key string, records []sink.Record) (err error) {
	if len(records) == 0 {
		return
	}

	tx, err := impl.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (key, session_id, value, ts, at, received_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return
	}

	defer stmt.Close()

	for _, record := range records {
		_, err = stmt.ExecContext(ctx, key, int64(record.SessionID), record.Value, record.Timestamp,
			toUnixNano(record.At), toUnixNano(record.ReceivedAt))
		if err != nil {
			return
		}
	}

	err = tx.Commit()

	return
}

func (impl *SQLiteStorage) Load(ctx context.Context, key string) (records []sink.Record, err error) {
	rows, err := impl.db.QueryContext(ctx,
		"SELECT session_id, value, ts, at, received_at FROM records WHERE key = ? ORDER BY id", key)
	if err != nil {
		return
	}

	defer rows.Close()

	for rows.Next() {
		var (
			sessionID      int64
			at, receivedAt sql.NullInt64
		)

		record := sink.Record{
			Key: key,
		}

		if err = rows.Scan(&sessionID, &record.Value, &record.Timestamp, &at, &receivedAt); err != nil {
			err = errors.Wrapf(sink.ErrBadRecord, "%s: %v", key, err)

			return
		}

		record.SessionID = uint64(sessionID)
		record.At = fromUnixNano(at)
		record.ReceivedAt = fromUnixNano(receivedAt)

		records = append(records, record)
	}

	err = rows.Err()

	return
}

func (impl *SQLiteStorage) Remove(ctx context.Context, key string) error {
	_, err := impl.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key)

	return err
}

func toUnixNano(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromUnixNano(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}

	return time.Unix(0, n.Int64).UTC()
}
