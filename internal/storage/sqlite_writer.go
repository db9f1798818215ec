package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"bag-reindex/internal/bag"
)

type WriterOptions struct {
	// OmitQoS creates the topics table without offered_qos_profiles, the
	// way segments from older recorders look.
	OmitQoS bool
}

// SQLiteWriter creates a new .db3 segment and appends topics and messages
// to it.
type SQLiteWriter struct {
	db      *sql.DB
	omitQoS bool
	insert  *sql.Stmt
}

// CreateSQLite creates a new segment at path. An existing file is never
// reused; it fails with os.ErrExist.
func CreateSQLite(ctx context.Context, path string, opts WriterOptions) (*SQLiteWriter, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create sqlite segment %s: %w", path, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("create sqlite segment %s: %w", path, err)
	}

	db, err := sql.Open(sqliteDriverName, sqliteDSN(path, "rwc"))
	if err != nil {
		return nil, fmt.Errorf("create sqlite segment: %w", err)
	}

	w := &SQLiteWriter{db: db, omitQoS: opts.OmitQoS}
	if err := w.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	w.insert, err = db.PrepareContext(ctx, `INSERT INTO messages(topic_id, timestamp, data) VALUES(?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare message insert: %w", err)
	}
	return w, nil
}

func (w *SQLiteWriter) initSchema(ctx context.Context) error {
	topics := `CREATE TABLE IF NOT EXISTS topics (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		serialization_format TEXT NOT NULL,
		offered_qos_profiles TEXT NOT NULL
	);`
	if w.omitQoS {
		topics = `CREATE TABLE IF NOT EXISTS topics (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			serialization_format TEXT NOT NULL
		);`
	}
	stmts := []string{
		`PRAGMA journal_mode = DELETE;`,
		topics,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			topic_id INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			data BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS timestamp_idx ON messages (timestamp ASC);`,
	}

	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init segment schema: %w", err)
		}
	}
	return nil
}

// AddTopic registers a topic and returns its row id for WriteMessage.
func (w *SQLiteWriter) AddTopic(ctx context.Context, t bag.TopicMetadata) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if w.omitQoS {
		res, err = w.db.ExecContext(ctx, `
			INSERT INTO topics(name, type, serialization_format) VALUES(?, ?, ?)
		`, t.Name, t.Type, t.SerializationFormat)
	} else {
		res, err = w.db.ExecContext(ctx, `
			INSERT INTO topics(name, type, serialization_format, offered_qos_profiles) VALUES(?, ?, ?, ?)
		`, t.Name, t.Type, t.SerializationFormat, t.OfferedQoSProfiles)
	}
	if err != nil {
		return 0, fmt.Errorf("insert topic %s: %w", t.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("topic id for %s: %w", t.Name, err)
	}
	return id, nil
}

func (w *SQLiteWriter) WriteMessage(ctx context.Context, topicID, timestamp int64, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	if _, err := w.insert.ExecContext(ctx, topicID, timestamp, data); err != nil {
		return fmt.Errorf("insert message for topic %d: %w", topicID, err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	if w.insert != nil {
		_ = w.insert.Close()
	}
	return w.db.Close()
}
